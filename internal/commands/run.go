package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/beadhub/standupbot/internal/bot"
	"github.com/beadhub/standupbot/internal/chat"
	"github.com/beadhub/standupbot/internal/client"
	"github.com/beadhub/standupbot/internal/config"
	"github.com/beadhub/standupbot/internal/conversation"
	"github.com/beadhub/standupbot/internal/logger"
	"github.com/beadhub/standupbot/internal/metrics"
	"github.com/beadhub/standupbot/internal/snapshot"
	"github.com/beadhub/standupbot/internal/tasks"
)

var (
	runMetricsAddr string
	runLogLevel    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Slack and serve standup conversations",
	Long: `Connect to Slack over RTM and answer direct messages until interrupted.

Connection failures are retried every reconnect_delay. The process exits with
an error only when Slack rejects the bot token.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics_addr)")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log_level)")
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found", config.GetPath())
		}
		return nil, err
	}
	if runMetricsAddr != "" {
		cfg.MetricsAddr = runMetricsAddr
	}
	if runLogLevel != "" {
		cfg.LogLevel = runLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config (%s): %w", config.GetPath(), err)
	}
	return cfg, nil
}

func newLogger(level string) *logger.Logger {
	return logger.New(logger.Config{
		Level:  level,
		Pretty: term.IsTerminal(int(os.Stderr.Fd())),
	})
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, newSlackClient(cfg.BotAccessToken), log)
}

// serve wires the bot together and runs it until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, api *client.Client, log *logger.Logger) error {
	m := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, m, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	id, err := api.AuthTest(ctx)
	switch {
	case errors.Is(err, chat.ErrInvalidAuth):
		return err
	case err != nil:
		log.Warn().Err(err).Msg("auth.test failed, will keep retrying on connect")
	default:
		log.Info().Str("bot_user", id.UserID).Str("team", id.Team).Msg("authenticated")
	}

	manager := tasks.NewManager()
	var store *snapshot.Store
	if cfg.StateFile != "" {
		store = snapshot.NewStore(cfg.StateFile, manager)
		n, err := store.Restore()
		if err != nil {
			return err
		}
		log.Info().Str("path", store.Path()).Int("lists", n).Msg("restored task lists")
	}

	publish := conversation.NewPublishTarget(cfg.PostToChannel)
	registry := conversation.NewRegistry(manager, conversation.Settings{
		Transport: api,
		BotName:   cfg.BotName,
		Publish:   publish,
		Log:       log,
	})

	b := bot.New(bot.Config{
		ReconnectDelay:     cfg.ReconnectDelay,
		HighActivityWindow: cfg.HighActivityWindow,
		FastPollInterval:   cfg.FastPollInterval,
		SlowPollInterval:   cfg.SlowPollInterval,
	}, api.RTM(), api, registry, publish, m, log)
	if store != nil {
		b.SetPersister(store)
	}

	log.Info().Str("publish_channel", publish.Name()).Msg("starting")
	if err := b.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}

func startMetricsServer(addr string, m *metrics.Metrics, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}
