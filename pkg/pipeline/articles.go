package pipeline

import (
	"context"
	"fmt"
	"time"

	"articlegrab/pkg/archive"
	"articlegrab/pkg/catalog"
	errs "articlegrab/pkg/errors"
	"articlegrab/pkg/extract"
	"articlegrab/pkg/logger"
	"articlegrab/pkg/progress"
)

// ArticleOptions controls one article run.
type ArticleOptions struct {
	// ListOnly stops after writing the catalog snapshot.
	ListOnly bool
	// Start is the 1-based catalog position to begin at; items before it
	// are skipped even when not yet downloaded.
	Start int
	// NoImages skips image downloads for this run.
	NoImages bool
	// RefreshList re-walks the listing even when a snapshot exists.
	RefreshList bool
}

// RunArticles downloads every article of the target profile, resuming past
// items completed in earlier runs.
func (r *Runner) RunArticles(ctx context.Context, opts ArticleOptions) (*Summary, error) {
	r.setState(StateListing)

	name, err := r.client.VerifyLogin(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.WithField("screen_name", name).Info("login verified")

	saveDir := r.cfg.Output.SaveDir
	articles, err := r.loadArticleCatalog(ctx, saveDir, opts.RefreshList)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(articles)}
	if opts.ListOnly {
		r.setState(StateDone)
		r.logger.WithField("articles", len(articles)).Info("list written, stopping")
		return summary, nil
	}

	tracker, err := progress.NewTracker(saveDir, r.logger)
	if err != nil {
		return nil, err
	}
	writer := archive.NewWriter(saveDir)

	r.setState(StateIterating)
	for i, art := range articles {
		pos := i + 1
		if pos < opts.Start || tracker.IsDone(art.ID) {
			summary.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		path, err := r.processArticle(ctx, writer, pos, art, opts.NoImages)
		if err != nil {
			if errs.IsFatal(err) {
				r.logger.WithError(err).Error("aborting run")
				return summary, err
			}
			summary.Failed++
			logger.LogItem(r.logger.WithField("position", pos), art.ID, art.Title, "", err)
			if markErr := tracker.Mark(art.ID, progress.StatusFailed, "", err.Error()); markErr != nil {
				return summary, markErr
			}
		} else {
			summary.Done++
			logger.LogItem(r.logger.WithField("position", fmt.Sprintf("%d/%d", pos, len(articles))), art.ID, art.Title, path, nil)
			if markErr := tracker.Mark(art.ID, progress.StatusDone, path, ""); markErr != nil {
				return summary, markErr
			}
		}

		if pos < len(articles) {
			if err := wait(ctx, r.cfg.Request.ItemDelay()); err != nil {
				return summary, err
			}
		}
	}

	r.setState(StateDone)
	return summary, nil
}

// loadArticleCatalog returns the snapshot when present, otherwise walks the
// listing and writes one.
func (r *Runner) loadArticleCatalog(ctx context.Context, saveDir string, refresh bool) ([]catalog.Article, error) {
	if !refresh && catalog.HasSnapshot(saveDir, catalog.ArticleListFile) {
		articles, err := catalog.LoadArticles(saveDir)
		if err == nil {
			r.logger.WithField("articles", len(articles)).Info("loaded article list from snapshot")
			return articles, nil
		}
		r.logger.WithError(err).Warn("snapshot unreadable, re-listing")
	}

	collector := catalog.NewCollector(r.client, r.cfg, r.logger)
	articles, err := collector.CollectArticles(ctx)
	if err != nil {
		return nil, err
	}
	if err := catalog.SaveSnapshot(saveDir, catalog.ArticleListFile, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// processArticle fetches, extracts and writes one article, returning the
// final directory path.
func (r *Runner) processArticle(ctx context.Context, writer *archive.Writer, pos int, art catalog.Article, noImages bool) (string, error) {
	pageHTML, err := r.client.GetHTML(ctx, art.PageURL)
	if err != nil {
		return "", err
	}

	content, err := extract.Article(pageHTML)
	if err != nil {
		return "", err
	}
	if content.Title == "" {
		content.Title = art.Title
	}

	var images []archive.Image
	if !noImages && !r.cfg.Output.SkipImages {
		replacements := make(map[string]string, len(content.Images))
		for i, imgURL := range content.Images {
			data, err := r.client.Download(ctx, imgURL)
			if err != nil {
				// A dead image is not worth failing the article over.
				r.logger.WithError(err).WithField("url", imgURL).Warn("image download failed")
				continue
			}
			name := archive.ImageName(i+1, imgURL)
			images = append(images, archive.Image{Name: name, Data: data})
			replacements[imgURL] = "images/" + name
		}
		content.HTML = archive.RewriteImageRefs(content.HTML, replacements)
	}

	var cover []byte
	if art.CoverPic != "" {
		if data, err := r.client.Download(ctx, art.CoverPic); err == nil {
			cover = data
		} else {
			r.logger.WithError(err).WithField("url", art.CoverPic).Warn("cover download failed")
		}
	}

	dirName := archive.DirName(pos, content.Title, r.cfg.Output.TitleMaxLen)
	path, err := writer.WriteArticle(dirName, art, content, images, cover)
	if err != nil {
		return "", err
	}
	return path, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// String formats the summary for the end-of-run report.
func (s *Summary) String() string {
	return fmt.Sprintf("total=%d done=%d failed=%d skipped=%d locked=%d",
		s.Total, s.Done, s.Failed, s.Skipped, s.Locked)
}
