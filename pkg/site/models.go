package site

import "strings"

// flexString decodes from either a JSON number or a JSON string; the
// timeline API is not consistent about id and type fields.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	*f = flexString(strings.Trim(string(b), `"`))
	return nil
}

func (f flexString) String() string { return string(f) }

// ProfileResponse is the shape of the profile info endpoint.
type ProfileResponse struct {
	Data struct {
		User struct {
			ID         flexString `json:"id"`
			ScreenName string     `json:"screen_name"`
		} `json:"user"`
	} `json:"data"`
}

// TimelineResponse is the shape of the paginated post listing endpoint.
type TimelineResponse struct {
	Data struct {
		List []Post `json:"list"`
	} `json:"data"`
}

// Post is one entry of the profile timeline. Articles and Q&A items are
// posts with an attached page_info card.
type Post struct {
	ID        flexString `json:"id"`
	CreatedAt string     `json:"created_at"`
	TextRaw   string     `json:"text_raw"`
	User      struct {
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	PageInfo PageInfo `json:"page_info"`
}

// PageInfo is the card attached to a post, describing linked content.
type PageInfo struct {
	Type       flexString `json:"type"`
	ObjectType string     `json:"object_type"`
	SourceType string     `json:"source_type"`
	PageID     flexString `json:"page_id"`
	PagePic    string     `json:"page_pic"`
	PageDesc   string     `json:"page_desc"`
	Content1   string     `json:"content1"`
	Content2   string     `json:"content2"`
	Content3   string     `json:"content3"`
}

// IsArticle reports whether the post links a long-form article.
func (p Post) IsArticle() bool {
	return p.PageInfo.ObjectType == "article" || p.PageInfo.Type.String() == "24"
}

// IsQA reports whether the post links a paid Q&A item.
func (p Post) IsQA() bool {
	return p.PageInfo.ObjectType == "wenda" || p.PageInfo.SourceType == "wenda"
}
