// Package commands implements the standupbot CLI commands.
package commands

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/beadhub/standupbot/internal/client"
	"github.com/beadhub/standupbot/internal/config"
)

var versionInfo struct {
	version string
	commit  string
	date    string
}

// SetVersionInfo sets version information from main (populated by goreleaser).
func SetVersionInfo(version, commit, date string) {
	versionInfo.version = version
	versionInfo.commit = commit
	versionInfo.date = date
	rootCmd.Version = version
}

// configPath is the --config flag shared by all commands.
var configPath string

// newSlackClient builds the Slack client for a token. Tests point it at an
// httptest server.
var newSlackClient = func(token string) *client.Client {
	return client.New(token)
}

var rootCmd = &cobra.Command{
	Use:   "standupbot",
	Short: "Slack bot that keeps a daily standup task list per user",
	Long: `standupbot keeps a task list for each user who DMs it and publishes
the list to a team channel on request.

Commands:
  standupbot run        - Connect to Slack and serve conversations
  standupbot check      - Validate the config and the bot token
  standupbot version    - Show version information

Configuration is read from standupbot.yaml (or --config). A .env file next to
it, or in the working directory, is loaded first.

Environment variables:
  SLACK_BOT_TOKEN              - Bot token (xoxb-...)
  STANDUPBOT_PUBLISH_CHANNEL   - Channel for published lists
  STANDUPBOT_BOT_NAME          - Display name for replies (default: Standup)
  STANDUPBOT_LOG_LEVEL         - debug, info, warn, error (default: info)
  STANDUPBOT_METRICS_ADDR      - Prometheus listener, e.g. :9090`,
	// Don't show usage/errors on errors from subcommands (main.go handles errors)
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.SetPath(configPath)
		loadDotenvBestEffort()
	},
}

func init() {
	// Disable cobra's auto-generated completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("standupbot {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("Config file (default: %s)", config.FileName))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadDotenvBestEffort() {
	// Prefer the directory holding the config file so a deployed config can
	// carry its own secrets. godotenv never overrides variables already set.
	if configPath != "" {
		_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))
	}
	_ = godotenv.Load()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
