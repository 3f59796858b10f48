package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/beadhub/standupbot/internal/config"
	"github.com/beadhub/standupbot/internal/conversation"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and the bot token",
	Long: `Validate the configuration, call auth.test with the bot token, and look up
the publish channel. Exits non-zero if any step fails.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output as JSON")
}

// CheckResult is the outcome of `standupbot check`.
type CheckResult struct {
	ConfigPath      string `json:"config_path"`
	BotUserID       string `json:"bot_user_id"`
	Team            string `json:"team"`
	PublishChannel  string `json:"publish_channel"`
	PublishResolved bool   `json:"publish_resolved"`
	PublishTarget   string `json:"publish_target"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	result, err := check(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if checkJSON {
		fmt.Fprint(out, marshalJSONOrFallback(result))
		return nil
	}
	fmt.Fprint(out, formatCheckOutput(result))
	return nil
}

func check(ctx context.Context, cfg *config.Config) (*CheckResult, error) {
	api := newSlackClient(cfg.BotAccessToken)

	id, err := api.AuthTest(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking bot token: %w", err)
	}

	channels, err := api.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}
	publish := conversation.NewPublishTarget(cfg.PostToChannel)
	resolved := publish.Resolve(channels)

	return &CheckResult{
		ConfigPath:      config.GetPath(),
		BotUserID:       id.UserID,
		Team:            id.Team,
		PublishChannel:  publish.Name(),
		PublishResolved: resolved,
		PublishTarget:   publish.Channel(),
	}, nil
}

func formatCheckOutput(r *CheckResult) string {
	s := fmt.Sprintf("Config:  %s\n", r.ConfigPath)
	s += fmt.Sprintf("Bot:     %s (team %s)\n", r.BotUserID, r.Team)
	if r.PublishResolved {
		s += fmt.Sprintf("Publish: #%s -> %s\n", r.PublishChannel, r.PublishTarget)
	} else {
		s += fmt.Sprintf("Publish: #%s (not found in public channels, will post by name)\n", r.PublishChannel)
	}
	return s
}
