package main

import (
	"github.com/spf13/cobra"

	"articlegrab/pkg/logger"
	"articlegrab/pkg/pipeline"
	"articlegrab/pkg/ui"
)

var (
	unlockBatchSize int
	unlockHeadless  bool
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Reveal locked Q&A answers with a browser",
	Long: `Opens the still-locked Q&A items in a browser, clicks the unlock control
and rewrites each item's files with the revealed answer. Items are
processed in fixed-size waves; progress is saved after every wave, so an
interrupted run resumes cleanly.

Requires a prior "articlegrab qa" run to have written the item list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("headless") {
			cfg.Unlock.Headless = unlockHeadless
		}

		runner, err := pipeline.NewRunner(cfg, logger.GetLogger())
		if err != nil {
			return err
		}

		ui.PrintInfo("Target", cfg.TargetUID)
		ui.PrintInfo("Output", cfg.Output.QASaveDir)

		summary, err := runner.RunUnlock(interruptibleContext(), pipeline.UnlockOptions{
			BatchSize: unlockBatchSize,
		})
		printSummary("Unlock", summary)
		return err
	},
}

func init() {
	unlockCmd.Flags().IntVar(&unlockBatchSize, "batch-size", 0, "items per browser wave (default from config)")
	unlockCmd.Flags().BoolVar(&unlockHeadless, "headless", false, "run the browser without a window")
	rootCmd.AddCommand(unlockCmd)
}
