package site

import (
	"strconv"
	"strings"

	"articlegrab/pkg/config"
)

// Endpoints expands the configured path templates into absolute URLs.
type Endpoints struct {
	base  string
	uid   string
	paths config.APIPaths
}

// NewEndpoints builds the endpoint set for the configured target.
func NewEndpoints(cfg *config.Config) *Endpoints {
	return &Endpoints{
		base:  strings.TrimRight(cfg.BaseURL, "/"),
		uid:   cfg.TargetUID,
		paths: cfg.APIPaths,
	}
}

// ProfileURL is the login/identity probe endpoint.
func (e *Endpoints) ProfileURL() string {
	return e.base + strings.ReplaceAll(e.paths.Profile, "{uid}", e.uid)
}

// ArticlesURL is one page of the profile's post listing.
func (e *Endpoints) ArticlesURL(page int) string {
	p := strings.ReplaceAll(e.paths.Articles, "{uid}", e.uid)
	p = strings.ReplaceAll(p, "{page}", strconv.Itoa(page))
	return e.base + p
}

// ArticleURL is the rendered page of one article.
func (e *Endpoints) ArticleURL(articleID string) string {
	return e.base + strings.ReplaceAll(e.paths.ArticlePage, "{article_id}", articleID)
}

// QAURL is the rendered page of one Q&A item.
func (e *Endpoints) QAURL(qaID string) string {
	return e.base + strings.ReplaceAll(e.paths.QAPage, "{qa_id}", qaID)
}

// ProfilePath returns the user profile page, used as the Referer header.
func (e *Endpoints) ProfilePath() string {
	return e.base + "/u/" + e.uid
}
