package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"articlegrab/pkg/logger"
	"articlegrab/pkg/pipeline"
	"articlegrab/pkg/ui"
)

var (
	articlesListOnly    bool
	articlesStart       int
	articlesNoImages    bool
	articlesRefreshList bool
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Download every article of the configured profile",
	Long: `Walks the profile's post listing, then downloads each article into its
own numbered directory with the page HTML, plain text, markdown, metadata
and images. Already-downloaded articles are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runner, err := pipeline.NewRunner(cfg, logger.GetLogger())
		if err != nil {
			return err
		}

		ui.PrintInfo("Target", cfg.TargetUID)
		ui.PrintInfo("Output", cfg.Output.SaveDir)

		summary, err := runner.RunArticles(interruptibleContext(), pipeline.ArticleOptions{
			ListOnly:    articlesListOnly,
			Start:       articlesStart,
			NoImages:    articlesNoImages,
			RefreshList: articlesRefreshList,
		})
		printSummary("Articles", summary)
		return err
	},
}

func init() {
	articlesCmd.Flags().BoolVar(&articlesListOnly, "list-only", false, "write the article list and stop")
	articlesCmd.Flags().IntVar(&articlesStart, "start", 1, "1-based list position to start from")
	articlesCmd.Flags().BoolVar(&articlesNoImages, "no-images", false, "skip image downloads")
	articlesCmd.Flags().BoolVar(&articlesRefreshList, "refresh-list", false, "re-walk the listing even when a snapshot exists")
	rootCmd.AddCommand(articlesCmd)
}

// interruptibleContext is cancelled on SIGINT/SIGTERM so the run stops at
// the next item boundary with progress already persisted.
func interruptibleContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		ui.PrintWarning("Interrupted, finishing the current item")
		cancel()
	}()
	return ctx
}

func printSummary(title string, s *pipeline.Summary) {
	if s == nil {
		return
	}
	ui.PrintSummary(fmt.Sprintf("%s: %d total", title, s.Total), map[string]int{
		"done":    s.Done,
		"failed":  s.Failed,
		"skipped": s.Skipped,
		"locked":  s.Locked,
	}, []string{"done", "failed", "skipped", "locked"})
}
