package catalog

import (
	"context"
	"time"

	"articlegrab/pkg/config"
	errs "articlegrab/pkg/errors"
	"articlegrab/pkg/logger"
	"articlegrab/pkg/site"
)

// maxPages bounds the listing walk in case the stop conditions never fire.
const maxPages = 200

// fullPageSize is the post count of a full listing page. A shorter page
// means we reached the end of the timeline.
const fullPageSize = 20

// Collector walks the paginated timeline and extracts catalog entries.
type Collector struct {
	client *site.Client
	cfg    *config.Config
	logger logger.Logger
}

// NewCollector builds a collector over the given client.
func NewCollector(client *site.Client, cfg *config.Config, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Collector{client: client, cfg: cfg, logger: log}
}

// walk fetches listing pages from page 1 until an empty or short page,
// handing each page's posts to visit. Any page failure aborts the whole
// listing: a partial catalog would silently skip items forever.
func (c *Collector) walk(ctx context.Context, visit func(site.Post)) error {
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageURL := c.client.Endpoints().ArticlesURL(page)
		var resp site.TimelineResponse
		if err := c.client.GetJSON(ctx, pageURL, &resp); err != nil {
			if errs.TypeOf(err) == errs.ErrorTypeAuth {
				return err
			}
			return errs.New(errs.ErrorTypeListing, 0, "listing page %d failed: %v", page, err)
		}

		posts := resp.Data.List
		if len(posts) == 0 {
			c.logger.DebugWithFields("listing ended on empty page", map[string]interface{}{
				"page": page,
			})
			return nil
		}

		for _, p := range posts {
			visit(p)
		}
		c.logger.InfoWithFields("listing page collected", map[string]interface{}{
			"page":  page,
			"posts": len(posts),
		})

		if len(posts) < fullPageSize {
			return nil
		}
		if delay := c.cfg.Request.PageDelay(); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	c.logger.Warn("listing stopped at the page cap")
	return nil
}

// CollectArticles walks the timeline and returns every article, deduplicated
// by id, in listing order (newest first).
func (c *Collector) CollectArticles(ctx context.Context) ([]Article, error) {
	var articles []Article
	seen := make(map[string]bool)

	err := c.walk(ctx, func(p site.Post) {
		if !p.IsArticle() {
			return
		}
		id := p.PageInfo.PageID.String()
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		articles = append(articles, articleFromPost(p, c.client.Endpoints().ArticleURL(id)))
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("article listing complete", map[string]interface{}{
		"articles": len(articles),
	})
	return articles, nil
}

// CollectQA walks the timeline and returns every Q&A item, deduplicated
// by id, in listing order.
func (c *Collector) CollectQA(ctx context.Context) ([]QA, error) {
	var items []QA
	seen := make(map[string]bool)

	err := c.walk(ctx, func(p site.Post) {
		if !p.IsQA() {
			return
		}
		id := p.PageInfo.PageID.String()
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		items = append(items, qaFromPost(p))
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("qa listing complete", map[string]interface{}{
		"items": len(items),
	})
	return items, nil
}
