package main

import (
	"github.com/spf13/cobra"

	"articlegrab/pkg/logger"
	"articlegrab/pkg/pipeline"
	"articlegrab/pkg/ui"
)

var (
	qaListOnly    bool
	qaStart       int
	qaRefreshList bool
)

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Download every Q&A item over plain HTTP",
	Long: `Downloads each Q&A item's question and answer. Answers still behind the
paywall are saved as-is and marked locked; run "articlegrab unlock"
afterwards to reveal them with a browser.`,
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
		ui.PrintInfo("Output", cfg.Output.QASaveDir)

		summary, err := runner.RunQA(interruptibleContext(), pipeline.QAOptions{
			ListOnly:    qaListOnly,
			Start:       qaStart,
			RefreshList: qaRefreshList,
		})
		printSummary("Q&A", summary)
		if err == nil && summary != nil && summary.Locked > 0 {
			ui.PrintWarning("Locked answers remain, run \"articlegrab unlock\" to reveal them")
		}
		return err
	},
}

func init() {
	qaCmd.Flags().BoolVar(&qaListOnly, "list-only", false, "write the qa list and stop")
	qaCmd.Flags().IntVar(&qaStart, "start", 1, "1-based list position to start from")
	qaCmd.Flags().BoolVar(&qaRefreshList, "refresh-list", false, "re-walk the listing even when a snapshot exists")
	rootCmd.AddCommand(qaCmd)
}
