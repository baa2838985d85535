package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "articlegrab/pkg/errors"
)

const embeddedBodyPage = `<!DOCTYPE html>
<html>
<head><title>Page Title</title></head>
<body>
<div class="title">A Proper Headline</div>
<script>
var content = filterXSS("<p>First paragraph.<\/p><img src=\"\/\/img.example.com\/pic\/a.jpg\"><p>Second paragraph.<\/p>", opts);
</script>
</body>
</html>`

const inlineBodyPage = `<!DOCTYPE html>
<html>
<body>
<h1>Fallback Headline</h1>
<div id="article_content">
  <p>Inline body text.</p>
  <img data-src="https://img.example.com/pic/b.png">
  <img src="data:image/gif;base64,AAAA">
  <img src="https://img.example.com/emotion/smile.gif">
  <img src="https://img.example.com/pic/b.png">
</div>
</body>
</html>`

func TestArticleFromEmbeddedPayload(t *testing.T) {
	content, err := Article(embeddedBodyPage)
	require.NoError(t, err)

	assert.Equal(t, "A Proper Headline", content.Title)
	assert.Contains(t, content.HTML, "<p>First paragraph.</p>")
	assert.Equal(t, "First paragraph.Second paragraph.", strings.ReplaceAll(content.Text, "\n", ""))
	assert.Equal(t, []string{"https://img.example.com/pic/a.jpg"}, content.Images)
}

func TestArticleFromInlineBody(t *testing.T) {
	content, err := Article(inlineBodyPage)
	require.NoError(t, err)

	assert.Equal(t, "Fallback Headline", content.Title)
	assert.Contains(t, content.Text, "Inline body text.")
	// data URIs, emoticons and duplicates are skipped.
	assert.Equal(t, []string{"https://img.example.com/pic/b.png"}, content.Images)
}

func TestArticleEmptyBodyIsParseFailure(t *testing.T) {
	_, err := Article(`<html><body><div class="title">Only a title</div></body></html>`)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParse, errs.TypeOf(err))
}

func TestDecodeJSString(t *testing.T) {
	assert.Equal(t, `<a href='/x'>link</a>`,
		decodeJSString(`<a href=\'\/x\'>link<\/a>`))
	// Undecodable input comes back as-is rather than vanishing.
	assert.Equal(t, `broken \u00`, decodeJSString(`broken \u00`))
}

const qaPage = `<html><body>
<div class="ask_con">How long do downloads take?</div>
<div class="main_answer">It depends on the item count and the configured delays between requests.</div>
</body></html>`

const qaAltPage = `<html><body>
<div node-type="askTitle">Alt shape question?</div>
<div class="WB_answer_wrap">Short preview...</div>
</body></html>`

func TestQAExtraction(t *testing.T) {
	content, err := QA(qaPage)
	require.NoError(t, err)
	assert.Equal(t, "How long do downloads take?", content.Question)
	assert.Contains(t, content.Answer, "configured delays")
}

func TestQAAlternateSelectors(t *testing.T) {
	content, err := QA(qaAltPage)
	require.NoError(t, err)
	assert.Equal(t, "Alt shape question?", content.Question)
	assert.Equal(t, "Short preview...", content.Answer)
}

func TestQAMissingQuestionIsParseFailure(t *testing.T) {
	_, err := QA(`<html><body><p>nothing useful</p></body></html>`)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParse, errs.TypeOf(err))
}

func TestUnlocked(t *testing.T) {
	preview := strings.Repeat("x", 149)
	full := strings.Repeat("x", 150)
	assert.False(t, Unlocked(preview, 150))
	assert.True(t, Unlocked(full, 150))
	// Rune count, not byte count.
	assert.True(t, Unlocked(strings.Repeat("好", 150), 150))
	assert.False(t, Unlocked("  \n  ", 1))
}
