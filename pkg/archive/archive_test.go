package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"articlegrab/pkg/catalog"
	"articlegrab/pkg/extract"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{"a/b\\c:d*e?f\"g<h>i|j", "a_b_c_d_e_f_g_h_i_j"},
		{"  spaced \n out\ttitle  ", "spaced out title"},
		{"", "untitled"},
		{"...", "untitled"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTitle(tt.in, 0), "input %q", tt.in)
	}
}

func TestDirName(t *testing.T) {
	assert.Equal(t, "007_How It Works", DirName(7, "How It Works", 0))
	assert.Equal(t, "123_untitled", DirName(123, "", 0))
}

func TestImageName(t *testing.T) {
	assert.Equal(t, "img_001.png", ImageName(1, "https://cdn.test/a/b.png?x=1"))
	assert.Equal(t, "img_012.jpg", ImageName(12, "https://cdn.test/noext"))
	assert.Equal(t, "img_002.jpg", ImageName(2, "https://cdn.test/evil.exe"))
	assert.Equal(t, "img_003.webp", ImageName(3, "https://cdn.test/pic.WEBP#frag"))
}

func TestWriteArticle(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	meta := catalog.Article{ID: "1", Title: "My Article", Author: "Writer", CreatedAt: "2024-01-01"}
	content := &extract.ArticleContent{
		Title: "My Article",
		HTML:  `<p>Hello <b>world</b>.</p><img src="images/img_001.jpg">`,
		Text:  "Hello world.",
	}
	images := []Image{{Name: "img_001.jpg", Data: []byte("jpegbytes")}}

	final, err := w.WriteArticle("001_My Article", meta, content, images, []byte("coverbytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "001_My Article"), final)

	html, err := os.ReadFile(filepath.Join(final, "article.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>My Article</h1>")
	assert.Contains(t, string(html), "<p>Hello <b>world</b>.</p>")

	text, err := os.ReadFile(filepath.Join(final, "article.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Hello world.")

	markdown, err := os.ReadFile(filepath.Join(final, "article.md"))
	require.NoError(t, err)
	assert.Contains(t, string(markdown), "# My Article")
	assert.Contains(t, string(markdown), "**world**")

	var gotMeta articleMetadata
	metaBytes, err := os.ReadFile(filepath.Join(final, "metadata.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(metaBytes, &gotMeta))
	assert.Equal(t, meta, gotMeta.Article)
	assert.Equal(t, len([]rune(content.Text)), gotMeta.ContentLength)
	assert.Equal(t, 1, gotMeta.ImageCount)

	img, err := os.ReadFile(filepath.Join(final, "images", "img_001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegbytes"), img)

	cover, err := os.ReadFile(filepath.Join(final, "cover.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("coverbytes"), cover)

	// No staging leftovers.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "001_My Article", entries[0].Name())
}

func TestWriteArticleReplacesPartialResult(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	stale := filepath.Join(dir, "001_Item")
	require.NoError(t, os.MkdirAll(stale, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "leftover.txt"), []byte("stale"), 0644))

	content := &extract.ArticleContent{Title: "Item", HTML: "<p>fresh</p>", Text: "fresh"}
	_, err := w.WriteArticle("001_Item", catalog.Article{ID: "1", Title: "Item"}, content, nil, nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(stale, "leftover.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(stale, "article.txt"))
	assert.NoError(t, err)
}

func TestWriteQAAndUnlockDetection(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	locked := &extract.QAContent{Question: "What is this?", Answer: "Short preview"}
	lockedMeta := catalog.QA{ID: "1", Author: "Writer", Date: "2024-01-01", PriceInfo: "paid 42"}
	lockedDir, err := w.WriteQA("001_What is this", lockedMeta, locked)
	require.NoError(t, err)
	assert.False(t, HasUnlockedAnswer(lockedDir, 150))

	page, err := os.ReadFile(filepath.Join(lockedDir, "qa.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>What is this?</h1>")
	assert.Contains(t, string(page), "Short preview")
	assert.Contains(t, string(page), "paid 42")

	full := &extract.QAContent{Question: "What is this?", Answer: strings.Repeat("a full answer ", 20)}
	fullDir, err := w.WriteQA("002_What is this", catalog.QA{ID: "2"}, full)
	require.NoError(t, err)
	assert.True(t, HasUnlockedAnswer(fullDir, 150))

	data, err := os.ReadFile(filepath.Join(lockedDir, "qa.txt"))
	require.NoError(t, err)
	parts := strings.SplitN(string(data), answerSeparator, 2)
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "What is this?")
	assert.Contains(t, parts[1], "Short preview")
}

func TestHasUnlockedAnswerMissingFile(t *testing.T) {
	assert.False(t, HasUnlockedAnswer(filepath.Join(t.TempDir(), "nope"), 150))
}

func TestRewriteImageRefs(t *testing.T) {
	body := `<img src="https://cdn.test/a.jpg"><img src="//cdn.test/a.jpg"><img src="https://cdn.test/b.jpg">`
	out := RewriteImageRefs(body, map[string]string{
		"https://cdn.test/a.jpg": "images/img_001.jpg",
	})
	assert.Equal(t, `<img src="images/img_001.jpg"><img src="images/img_001.jpg"><img src="https://cdn.test/b.jpg">`, out)
}
