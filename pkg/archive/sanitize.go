// Package archive writes the downloaded content to disk: one directory per
// item with the page HTML, plain text, markdown, metadata and images.
package archive

import (
	"fmt"
	"strings"
)

// defaultTitleMaxLen bounds directory name length; long titles get cut.
const defaultTitleMaxLen = 50

// unsafeChars are stripped from titles before they become directory names.
var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"\x00", "",
	"\n", " ",
	"\r", " ",
	"\t", " ",
)

// SanitizeTitle turns a page title into a filesystem-safe name fragment.
func SanitizeTitle(title string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = defaultTitleMaxLen
	}
	title = unsafeChars.Replace(strings.TrimSpace(title))
	title = strings.Join(strings.Fields(title), " ")
	runes := []rune(title)
	if len(runes) > maxLen {
		title = strings.TrimSpace(string(runes[:maxLen]))
	}
	title = strings.Trim(title, ". ")
	if title == "" {
		title = "untitled"
	}
	return title
}

// DirName builds the item directory name from its 1-based position in the
// catalog and its title, e.g. "007_How It Works".
func DirName(position int, title string, maxLen int) string {
	return fmt.Sprintf("%03d_%s", position, SanitizeTitle(title, maxLen))
}

// ImageName names the nth downloaded image, keeping its extension.
func ImageName(index int, url string) string {
	ext := ".jpg"
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if i := strings.LastIndex(trimmed, "."); i >= 0 {
		candidate := strings.ToLower(trimmed[i:])
		switch candidate {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp":
			ext = candidate
		}
	}
	return fmt.Sprintf("img_%03d%s", index, ext)
}
