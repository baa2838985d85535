// Package extract pulls article and Q&A content out of the site's rendered
// HTML pages.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "articlegrab/pkg/errors"
)

// xssPayloadRe matches the JS string the site passes through its
// client-side sanitizer; article pages embed the full body HTML there
// instead of serving it in the document.
var xssPayloadRe = regexp.MustCompile(`filterXSS\("((?s:.*?))"\s*[,)]`)

// ArticleContent is the extracted body of one article page.
type ArticleContent struct {
	Title  string
	HTML   string
	Text   string
	Images []string
}

// decodeJSString turns the escaped JS string literal captured from the page
// into its runtime value. strconv.Unquote handles the standard escapes once
// the JS-only ones are normalized away.
func decodeJSString(s string) string {
	s = strings.ReplaceAll(s, `\/`, `/`)
	s = strings.ReplaceAll(s, `\'`, `'`)
	decoded, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return s
	}
	return decoded
}

// Article extracts the title, body and image URLs from a rendered article
// page. An empty body is a parse failure: the page shape changed or the
// content never loaded.
func Article(pageHTML string) (*ArticleContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParse, 0, "failed to parse article page: %v", err)
	}

	content := &ArticleContent{Title: articleTitle(doc)}

	body := ""
	if m := xssPayloadRe.FindStringSubmatch(pageHTML); m != nil {
		body = decodeJSString(m[1])
	}
	if body == "" {
		// Older pages serve the body in the document itself.
		for _, sel := range []string{"#article_content", ".article_content", ".WB_editor_iframe"} {
			if node := doc.Find(sel).First(); node.Length() > 0 {
				if h, err := node.Html(); err == nil {
					body = h
					break
				}
			}
		}
	}
	if strings.TrimSpace(body) == "" {
		return nil, errs.New(errs.ErrorTypeParse, 0, "article body is empty")
	}

	bodyDoc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParse, 0, "failed to parse article body: %v", err)
	}

	content.HTML = body
	content.Text = normalizeText(bodyDoc.Text())
	content.Images = bodyImages(bodyDoc)
	return content, nil
}

func articleTitle(doc *goquery.Document) string {
	for _, sel := range []string{"div.title", "h1"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// bodyImages collects image URLs from the body, skipping inline data URIs
// and emoticon sprites.
func bodyImages(doc *goquery.Document) []string {
	var urls []string
	seen := make(map[string]bool)
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") || strings.Contains(src, "emotion") {
			return
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		if !seen[src] {
			seen[src] = true
			urls = append(urls, src)
		}
	})
	return urls
}

// normalizeText collapses the whitespace goquery leaves behind when
// flattening block elements.
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
