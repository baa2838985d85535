// Package catalog walks the profile's paginated post listing and builds
// the list of articles and Q&A items to download, with a snapshot on disk
// so later runs skip the listing phase.
package catalog

import "articlegrab/pkg/site"

// Article is one long-form article discovered in the timeline.
type Article struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	PostID    string `json:"post_id"`
	CreatedAt string `json:"created_at"`
	Summary   string `json:"summary"`
	CoverPic  string `json:"cover_pic"`
	PageURL   string `json:"page_url"`
}

// QA is one paid Q&A item discovered in the timeline.
type QA struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	Questioner string `json:"questioner"`
	PriceInfo  string `json:"price_info"`
	Author     string `json:"author"`
	Date       string `json:"date"`
	Summary    string `json:"summary"`
}

func articleFromPost(p site.Post, pageURL string) Article {
	return Article{
		ID:        p.PageInfo.PageID.String(),
		Title:     p.PageInfo.Content1,
		Author:    p.User.ScreenName,
		PostID:    p.ID.String(),
		CreatedAt: p.CreatedAt,
		Summary:   p.PageInfo.PageDesc,
		CoverPic:  p.PageInfo.PagePic,
		PageURL:   pageURL,
	}
}

func qaFromPost(p site.Post) QA {
	return QA{
		ID:         p.PageInfo.PageID.String(),
		Question:   p.PageInfo.Content1,
		Questioner: p.PageInfo.Content3,
		PriceInfo:  p.PageInfo.Content2,
		Author:     p.User.ScreenName,
		Date:       p.CreatedAt,
		Summary:    p.PageInfo.PageDesc,
	}
}
