package pipeline

import (
	"context"
	"fmt"

	"articlegrab/internal/batch"
	"articlegrab/pkg/archive"
	"articlegrab/pkg/catalog"
	errs "articlegrab/pkg/errors"
	"articlegrab/pkg/extract"
	"articlegrab/pkg/logger"
	"articlegrab/pkg/progress"
	"articlegrab/pkg/render"
)

// QAOptions controls one Q&A run.
type QAOptions struct {
	ListOnly    bool
	Start       int
	RefreshList bool
}

// UnlockOptions controls one unlock run.
type UnlockOptions struct {
	// BatchSize overrides the configured wave size when positive.
	BatchSize int
}

// RunQA downloads every Q&A item over plain HTTP. Items whose answer is
// still behind the paywall are saved as-is and marked locked for a later
// unlock run.
func (r *Runner) RunQA(ctx context.Context, opts QAOptions) (*Summary, error) {
	r.setState(StateListing)

	name, err := r.client.VerifyLogin(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.WithField("screen_name", name).Info("login verified")

	saveDir := r.cfg.Output.QASaveDir
	items, err := r.loadQACatalog(ctx, saveDir, opts.RefreshList)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(items)}
	if opts.ListOnly {
		r.setState(StateDone)
		r.logger.WithField("items", len(items)).Info("list written, stopping")
		return summary, nil
	}

	tracker, err := progress.NewTracker(saveDir, r.logger)
	if err != nil {
		return nil, err
	}
	writer := archive.NewWriter(saveDir)

	r.setState(StateIterating)
	for i, item := range items {
		pos := i + 1
		if pos < opts.Start || tracker.IsDone(item.ID) {
			summary.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		status, path, err := r.processQA(ctx, writer, pos, item)
		switch {
		case err != nil && errs.IsFatal(err):
			r.logger.WithError(err).Error("aborting run")
			return summary, err
		case err != nil:
			summary.Failed++
			logger.LogItem(r.logger, item.ID, item.Question, "", err)
			if markErr := tracker.Mark(item.ID, progress.StatusFailed, "", err.Error()); markErr != nil {
				return summary, markErr
			}
		default:
			if status == progress.StatusLocked {
				summary.Locked++
				r.logger.WithField("id", item.ID).Info("answer locked, saved preview")
			} else {
				summary.Done++
				logger.LogItem(r.logger, item.ID, item.Question, path, nil)
			}
			if markErr := tracker.Mark(item.ID, status, path, ""); markErr != nil {
				return summary, markErr
			}
		}

		if pos < len(items) {
			if err := wait(ctx, r.cfg.Request.ItemDelay()); err != nil {
				return summary, err
			}
		}
	}

	r.setState(StateDone)
	return summary, nil
}

func (r *Runner) loadQACatalog(ctx context.Context, saveDir string, refresh bool) ([]catalog.QA, error) {
	if !refresh && catalog.HasSnapshot(saveDir, catalog.QAListFile) {
		items, err := catalog.LoadQA(saveDir)
		if err == nil {
			r.logger.WithField("items", len(items)).Info("loaded qa list from snapshot")
			return items, nil
		}
		r.logger.WithError(err).Warn("snapshot unreadable, re-listing")
	}

	collector := catalog.NewCollector(r.client, r.cfg, r.logger)
	items, err := collector.CollectQA(ctx)
	if err != nil {
		return nil, err
	}
	if err := catalog.SaveSnapshot(saveDir, catalog.QAListFile, items); err != nil {
		return nil, err
	}
	return items, nil
}

// processQA fetches and writes one Q&A item, classifying it as done or
// locked by answer length.
func (r *Runner) processQA(ctx context.Context, writer *archive.Writer, pos int, item catalog.QA) (progress.Status, string, error) {
	pageHTML, err := r.client.GetHTML(ctx, r.client.Endpoints().QAURL(item.ID))
	if err != nil {
		return "", "", err
	}

	content, err := extract.QA(pageHTML)
	if err != nil {
		if item.Question == "" {
			return "", "", err
		}
		// The catalog already knows the question; save what we have.
		content = &extract.QAContent{Question: item.Question}
	}

	// Name the directory from the catalog question so a later unlock run,
	// which may render the question differently, lands in the same place.
	title := item.Question
	if title == "" {
		title = content.Question
	}
	dirName := archive.DirName(pos, title, r.cfg.Output.TitleMaxLen)
	path, err := writer.WriteQA(dirName, item, content)
	if err != nil {
		return "", "", err
	}

	if extract.Unlocked(content.Answer, r.cfg.QA.UnlockedMinChars) {
		return progress.StatusDone, path, nil
	}
	return progress.StatusLocked, path, nil
}

// RunUnlock re-visits locked Q&A items in a browser, clicking the unlock
// control and rewriting each item's artifacts with the revealed answer.
// Progress is persisted after every wave so an interrupted run never
// re-unlocks what a finished wave already captured.
func (r *Runner) RunUnlock(ctx context.Context, opts UnlockOptions) (*Summary, error) {
	saveDir := r.cfg.Output.QASaveDir
	if !catalog.HasSnapshot(saveDir, catalog.QAListFile) {
		return nil, errs.New(errs.ErrorTypeListing, 0,
			"no qa list found in %s, run the qa command first", saveDir)
	}
	items, err := catalog.LoadQA(saveDir)
	if err != nil {
		return nil, err
	}

	tracker, err := progress.NewTracker(saveDir, r.logger)
	if err != nil {
		return nil, err
	}
	writer := archive.NewWriter(saveDir)

	summary := &Summary{Total: len(items)}
	byID := make(map[string]catalog.QA, len(items))
	posByID := make(map[string]int, len(items))
	var jobs []batch.Job
	for i, item := range items {
		byID[item.ID] = item
		posByID[item.ID] = i + 1

		entry, tracked := tracker.Get(item.ID)
		if tracked && entry.Status == progress.StatusDone {
			summary.Skipped++
			continue
		}
		// Trust the artifacts over the progress file: a previous unlock may
		// have revealed the answer without the mark landing.
		if tracked && entry.Path != "" && archive.HasUnlockedAnswer(entry.Path, r.cfg.QA.UnlockedMinChars) {
			summary.Skipped++
			if err := tracker.Mark(item.ID, progress.StatusDone, entry.Path, ""); err != nil {
				return summary, err
			}
			continue
		}
		jobs = append(jobs, batch.Job{ID: item.ID, URL: r.client.Endpoints().QAURL(item.ID)})
	}

	if len(jobs) == 0 {
		r.logger.Info("nothing to unlock")
		r.setState(StateDone)
		return summary, nil
	}

	renderer := r.getRenderer()
	if renderer == nil {
		renderer, err = render.Launch(r.cfg, r.logger)
		if err != nil {
			return summary, err
		}
		defer func() {
			if closeErr := renderer.Close(); closeErr != nil {
				r.logger.WithError(closeErr).Warn("browser close failed")
			}
		}()
	}

	size := opts.BatchSize
	if size <= 0 {
		size = r.cfg.Unlock.BatchSize
	}
	r.logger.WithFields(map[string]interface{}{
		"items":      len(jobs),
		"batch_size": size,
	}).Info("starting unlock")

	r.setState(StateIterating)
	var hookErr error
	hook := func(wave int, results []batch.Result[*render.Result]) {
		for _, res := range results {
			if err := r.recordUnlock(writer, tracker, byID, posByID, res, summary); err != nil && hookErr == nil {
				hookErr = err
			}
		}
		r.logger.WithFields(map[string]interface{}{
			"wave":     wave,
			"progress": fmt.Sprintf("%d/%d", summary.Done+summary.Failed+summary.Locked, len(jobs)),
		}).Info("wave complete")
	}

	fn := func(ctx context.Context, job batch.Job) (*render.Result, error) {
		return renderer.Render(ctx, job.URL)
	}
	_, runErr := batch.RunWithHook(ctx, jobs, size, fn, hook)
	if hookErr != nil {
		return summary, hookErr
	}
	if runErr != nil {
		return summary, runErr
	}

	r.setState(StateDone)
	return summary, nil
}

// recordUnlock writes one rendered result back to disk and the progress
// file.
func (r *Runner) recordUnlock(writer *archive.Writer, tracker *progress.Tracker, byID map[string]catalog.QA, posByID map[string]int, res batch.Result[*render.Result], summary *Summary) error {
	item := byID[res.Job.ID]

	if res.Err != nil {
		summary.Failed++
		r.logger.WithError(res.Err).WithField("id", res.Job.ID).Warn("unlock failed")
		return tracker.Mark(res.Job.ID, progress.StatusFailed, "", res.Err.Error())
	}

	content := &extract.QAContent{
		Question: res.Output.Question,
		Answer:   res.Output.Answer,
	}
	if content.Question == "" {
		content.Question = item.Question
	}
	if content.Question == "" || content.Answer == "" {
		// Fall back to parsing the settled DOM.
		if parsed, err := extract.QA(res.Output.HTML); err == nil {
			if content.Question == "" {
				content.Question = parsed.Question
			}
			if content.Answer == "" {
				content.Answer = parsed.Answer
			}
		}
	}

	title := item.Question
	if title == "" {
		title = content.Question
	}
	dirName := archive.DirName(posByID[res.Job.ID], title, r.cfg.Output.TitleMaxLen)
	path, err := writer.WriteQA(dirName, item, content)
	if err != nil {
		summary.Failed++
		return tracker.Mark(res.Job.ID, progress.StatusFailed, "", err.Error())
	}

	if extract.Unlocked(content.Answer, r.cfg.QA.UnlockedMinChars) {
		summary.Done++
		return tracker.Mark(res.Job.ID, progress.StatusDone, path, "")
	}
	summary.Locked++
	r.logger.WithField("id", res.Job.ID).Warn("answer still locked after unlock attempt")
	return tracker.Mark(res.Job.ID, progress.StatusLocked, path, "")
}
