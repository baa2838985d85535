package archive

import (
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"

	"articlegrab/pkg/catalog"
	errs "articlegrab/pkg/errors"
	"articlegrab/pkg/extract"
)

// answerSeparator divides the question from the answer in qa.txt.
var answerSeparator = strings.Repeat("=", 60)

// Image is one downloaded image ready to be written into the item's
// images/ directory.
type Image struct {
	Name string
	Data []byte
}

var pageTemplate = template.Must(template.New("article").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 720px; margin: 2em auto; padding: 0 1em; font-family: serif; line-height: 1.7; }
img { max-width: 100%; }
h1 { font-size: 1.5em; }
.meta { color: #888; font-size: 0.85em; margin-bottom: 2em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{.Author}}{{if .Date}} · {{.Date}}{{end}}</div>
{{.Body}}
</body>
</html>
`))

type pageData struct {
	Title  string
	Author string
	Date   string
	Body   template.HTML
}

var qaTemplate = template.Must(template.New("qa").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Question}}</title>
<style>
body { max-width: 720px; margin: 2em auto; padding: 0 1em; font-family: serif; line-height: 1.7; }
h1 { font-size: 1.3em; }
.meta { color: #888; font-size: 0.85em; margin-bottom: 2em; }
.answer { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Question}}</h1>
<div class="meta">{{.Author}}{{if .Date}} · {{.Date}}{{end}}{{if .PriceInfo}} · {{.PriceInfo}}{{end}}</div>
<div class="answer">{{.Answer}}</div>
</body>
</html>
`))

type qaPageData struct {
	Question  string
	Answer    string
	Author    string
	Date      string
	PriceInfo string
}

// articleMetadata is the metadata.json payload: the catalog record plus
// counts describing what was actually saved.
type articleMetadata struct {
	catalog.Article
	ContentLength int `json:"content_length"`
	ImageCount    int `json:"image_count"`
}

// Writer persists item artifacts under a save directory. Each item is
// written into a staging directory first and renamed into place only when
// every artifact landed, so an interrupted write never leaves a directory
// that looks complete.
type Writer struct {
	saveDir   string
	converter *md.Converter
}

// NewWriter builds a writer rooted at saveDir.
func NewWriter(saveDir string) *Writer {
	return &Writer{
		saveDir:   saveDir,
		converter: md.NewConverter("", true, nil),
	}
}

// SaveDir is the writer's root directory.
func (w *Writer) SaveDir() string {
	return w.saveDir
}

// stage creates a temporary sibling of the final directory.
func (w *Writer) stage(dirName string) (string, error) {
	staging := filepath.Join(w.saveDir, "."+dirName+"-"+uuid.NewString()[:8])
	if err := os.MkdirAll(staging, 0755); err != nil {
		return "", errs.New(errs.ErrorTypeWrite, 0, "failed to create staging directory: %v", err)
	}
	return staging, nil
}

// commit moves the staging directory to its final name, replacing any
// partial result from an earlier run.
func (w *Writer) commit(staging, dirName string) (string, error) {
	final := filepath.Join(w.saveDir, dirName)
	if err := os.RemoveAll(final); err != nil {
		os.RemoveAll(staging)
		return "", errs.New(errs.ErrorTypeWrite, 0, "failed to clear %s: %v", dirName, err)
	}
	if err := os.Rename(staging, final); err != nil {
		os.RemoveAll(staging)
		return "", errs.New(errs.ErrorTypeWrite, 0, "failed to commit %s: %v", dirName, err)
	}
	return final, nil
}

func writeFile(dir, name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to write %s: %v", name, err)
	}
	return nil
}

func writeJSON(dir, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.New(errs.ErrorTypeWrite, 0, "failed to encode %s: %v", name, err)
	}
	return writeFile(dir, name, data)
}

// WriteArticle writes one article's artifacts and returns the final
// directory path. The HTML passed in should already reference local image
// paths where images were downloaded.
func (w *Writer) WriteArticle(dirName string, meta catalog.Article, content *extract.ArticleContent, images []Image, cover []byte) (string, error) {
	staging, err := w.stage(dirName)
	if err != nil {
		return "", err
	}
	cleanup := func(err error) (string, error) {
		os.RemoveAll(staging)
		return "", err
	}

	var page strings.Builder
	err = pageTemplate.Execute(&page, pageData{
		Title:  content.Title,
		Author: meta.Author,
		Date:   meta.CreatedAt,
		Body:   template.HTML(content.HTML),
	})
	if err != nil {
		return cleanup(errs.New(errs.ErrorTypeWrite, 0, "failed to render article.html: %v", err))
	}
	if err := writeFile(staging, "article.html", []byte(page.String())); err != nil {
		return cleanup(err)
	}

	text := content.Title + "\n\n" + content.Text + "\n"
	if err := writeFile(staging, "article.txt", []byte(text)); err != nil {
		return cleanup(err)
	}

	if markdown, mdErr := w.converter.ConvertString(content.HTML); mdErr == nil {
		body := "# " + content.Title + "\n\n" + markdown + "\n"
		if err := writeFile(staging, "article.md", []byte(body)); err != nil {
			return cleanup(err)
		}
	}

	metadata := articleMetadata{
		Article:       meta,
		ContentLength: len([]rune(content.Text)),
		ImageCount:    len(images),
	}
	if err := writeJSON(staging, "metadata.json", metadata); err != nil {
		return cleanup(err)
	}

	if len(cover) > 0 {
		if err := writeFile(staging, "cover.jpg", cover); err != nil {
			return cleanup(err)
		}
	}

	if len(images) > 0 {
		imgDir := filepath.Join(staging, "images")
		if err := os.MkdirAll(imgDir, 0755); err != nil {
			return cleanup(errs.New(errs.ErrorTypeWrite, 0, "failed to create images directory: %v", err))
		}
		for _, img := range images {
			if err := writeFile(imgDir, img.Name, img.Data); err != nil {
				return cleanup(err)
			}
		}
	}

	return w.commit(staging, dirName)
}

// WriteQA writes one Q&A item's artifacts and returns the final directory
// path.
func (w *Writer) WriteQA(dirName string, meta catalog.QA, content *extract.QAContent) (string, error) {
	staging, err := w.stage(dirName)
	if err != nil {
		return "", err
	}
	cleanup := func(err error) (string, error) {
		os.RemoveAll(staging)
		return "", err
	}

	var page strings.Builder
	err = qaTemplate.Execute(&page, qaPageData{
		Question:  content.Question,
		Answer:    content.Answer,
		Author:    meta.Author,
		Date:      meta.Date,
		PriceInfo: meta.PriceInfo,
	})
	if err != nil {
		return cleanup(errs.New(errs.ErrorTypeWrite, 0, "failed to render qa.html: %v", err))
	}
	if err := writeFile(staging, "qa.html", []byte(page.String())); err != nil {
		return cleanup(err)
	}

	var b strings.Builder
	b.WriteString(content.Question)
	b.WriteString("\n")
	b.WriteString(answerSeparator)
	b.WriteString("\n")
	b.WriteString(content.Answer)
	b.WriteString("\n")
	if err := writeFile(staging, "qa.txt", []byte(b.String())); err != nil {
		return cleanup(err)
	}

	if err := writeJSON(staging, "metadata.json", meta); err != nil {
		return cleanup(err)
	}

	return w.commit(staging, dirName)
}

// RewriteImageRefs replaces remote image URLs with local paths in the body
// HTML. Only the URLs present in replacements change, so images that failed
// to download keep their remote reference.
func RewriteImageRefs(body string, replacements map[string]string) string {
	for remote, local := range replacements {
		body = strings.ReplaceAll(body, remote, local)
		// The embedded payload form uses protocol-relative URLs.
		if strings.HasPrefix(remote, "https:") {
			body = strings.ReplaceAll(body, strings.TrimPrefix(remote, "https:"), local)
		}
	}
	return body
}

// HasUnlockedAnswer reports whether the qa.txt already written in dir holds
// a full answer rather than the paywall preview.
func HasUnlockedAnswer(dir string, minChars int) bool {
	data, err := os.ReadFile(filepath.Join(dir, "qa.txt"))
	if err != nil {
		return false
	}
	parts := strings.SplitN(string(data), answerSeparator, 2)
	if len(parts) != 2 {
		return false
	}
	return extract.Unlocked(parts[1], minChars)
}
