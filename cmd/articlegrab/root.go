package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"articlegrab/pkg/auth"
	"articlegrab/pkg/config"
	"articlegrab/pkg/logger"
	"articlegrab/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "articlegrab",
	Short: "Download a profile's paid articles and Q&A content for offline reading",
	Long: `articlegrab archives the paid content of a profile you have access to.

It walks the profile's post listing, saves each article as styled HTML,
plain text and markdown with its images, and downloads Q&A items. Answers
still behind the paywall after the plain download are revealed with a real
browser in a second pass.

Runs are resumable: completed items are recorded in a progress file and
skipped on the next invocation.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
			logLevel = "error"
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.json", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress everything except errors")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		return err
	}
	return nil
}

// loadConfig loads the config file and initializes the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)

	// With no cookies in the config or environment, fall back to the
	// credential store.
	if len(cfg.CleanCookies()) == 0 {
		if manager, err := auth.NewManager(); err == nil {
			if set, err := manager.Retrieve(cfg.TargetUID); err == nil {
				cfg.Cookies = set.Cookies
				if set.UserAgent != "" {
					cfg.UserAgent = set.UserAgent
				}
				log.WithField("target_uid", cfg.TargetUID).Debug("using stored cookies")
			}
		}
	}
	return cfg, nil
}
