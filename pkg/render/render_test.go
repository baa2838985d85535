package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"articlegrab/pkg/config"
)

func TestSessionCookies(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "https://card.site.example/page"
	cfg.Cookies = map[string]string{"SUB": "abc", "SUBP": "def", "empty": ""}

	cookies, err := SessionCookies(cfg)
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	for _, c := range cookies {
		assert.Equal(t, ".site.example", c.Domain)
		assert.Equal(t, "/", c.Path)
		assert.NotEmpty(t, c.Value)
	}
}

func TestSessionCookiesBadBaseURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "not a url"
	_, err := SessionCookies(cfg)
	assert.Error(t, err)
}
