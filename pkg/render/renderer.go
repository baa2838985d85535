// Package render drives a real browser to load Q&A pages, trigger the
// unlock control and read back the revealed content. Plain HTTP cannot do
// this: the unlock happens client-side after a click.
package render

import "context"

// Result is one rendered page: the final DOM plus the extracted question
// and answer text.
type Result struct {
	URL      string
	HTML     string
	Question string
	Answer   string
	// Clicked reports whether the unlock control was present and clicked.
	Clicked bool
}

// Renderer loads pages in a browser. Implementations are safe for use from
// multiple goroutines; each Render call gets its own page.
type Renderer interface {
	Render(ctx context.Context, url string) (*Result, error)
	Close() error
}
