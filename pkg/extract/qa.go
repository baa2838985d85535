package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "articlegrab/pkg/errors"
)

// Selector lists for Q&A pages. The site ships several page shapes; each
// list is tried in order and the first non-empty match wins.
var (
	questionSelectors = []string{
		".ask_con",
		`[node-type="askTitle"]`,
		".question_con",
	}
	answerSelectors = []string{
		".main_answer",
		".WB_answer_wrap",
		".answer_con",
	}
)

// QAContent is the extracted content of one Q&A page.
type QAContent struct {
	Question string
	Answer   string
}

// QA extracts the question and answer text from a rendered Q&A page. A
// missing question is a parse failure; a missing or truncated answer is
// not, it just means the answer is still behind the paywall.
func QA(pageHTML string) (*QAContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParse, 0, "failed to parse qa page: %v", err)
	}

	content := &QAContent{
		Question: firstText(doc, questionSelectors),
		Answer:   firstText(doc, answerSelectors),
	}
	if content.Question == "" {
		return nil, errs.New(errs.ErrorTypeParse, 0, "question text not found")
	}
	return content, nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := normalizeText(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// Unlocked reports whether answer looks like full content rather than the
// paywall preview. Previews are cut well short of real answers.
func Unlocked(answer string, minChars int) bool {
	return len([]rune(strings.TrimSpace(answer))) >= minChars
}
