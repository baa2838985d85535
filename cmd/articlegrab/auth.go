package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"articlegrab/pkg/auth"
	"articlegrab/pkg/config"
	"articlegrab/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored site cookies",
	Long: `Manage the session cookies used to access the target site.

Cookies are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Cookies written directly in the config file always take precedence over
stored ones. Never share your cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [target-uid]",
	Short: "Store site cookies securely",
	Long: `Store the session cookies for a target profile.

You will be prompted for the cookie string. To get it:
1. Log into the site in your browser
2. Open Developer Tools (F12) and load any page
3. Copy the Cookie request header value ("name=value; name2=value2")`,
	Example: `  # Interactive login
  articlegrab auth login 1234567890`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [target-uid]",
	Short: "Remove stored cookies",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status [target-uid]",
	Short: "Show whether cookies are stored for a target",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize cookie store: %w", err)
	}
	targetUID := args[0]

	fmt.Print("Cookie string (input hidden): ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read cookie string: %w", err)
	}

	cookies := config.ParseCookieString(string(raw))
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies parsed, expected \"name=value; name2=value2\"")
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("User agent (press Enter for default): ")
	userAgent, _ := reader.ReadString('\n')

	set := &auth.CookieSet{
		TargetUID:    targetUID,
		Cookies:      cookies,
		UserAgent:    strings.TrimSpace(userAgent),
		LastModified: time.Now(),
	}
	if err := manager.Store(set); err != nil {
		return fmt.Errorf("failed to store cookies: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Stored %d cookies for target %s", len(cookies), targetUID))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize cookie store: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to remove cookies: %w", err)
	}
	ui.PrintSuccess("Cookies removed for target " + args[0])
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize cookie store: %w", err)
	}
	if !manager.Exists(args[0]) {
		ui.PrintWarning("No stored cookies for target " + args[0])
		return nil
	}
	set, err := manager.Retrieve(args[0])
	if err != nil {
		return err
	}
	ui.PrintInfo("Target", set.TargetUID)
	ui.PrintInfo("Cookies", fmt.Sprintf("%d stored", len(set.Cookies)))
	if !set.LastModified.IsZero() {
		ui.PrintInfo("Updated", set.LastModified.Format(time.RFC3339))
	}
	return nil
}
