// Package bot runs the event loop: it reads real-time events in batches,
// routes direct messages to per-user conversations, adapts its polling rate
// to recent activity, and reconnects when the platform connection fails.
//
// Only the first direct message of each batch is handled. Any further direct
// messages read in the same cycle are dropped and counted in
// standupbot_events_dropped_total. Users see this as a message that got no
// reply during a burst; sending it again works.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/beadhub/standupbot/internal/chat"
	"github.com/beadhub/standupbot/internal/conversation"
	"github.com/beadhub/standupbot/internal/logger"
	"github.com/beadhub/standupbot/internal/metrics"
)

// Defaults for Config fields left at zero.
const (
	DefaultReconnectDelay     = 10 * time.Second
	DefaultHighActivityWindow = 30 * time.Second
	DefaultFastPollInterval   = 100 * time.Millisecond
	DefaultSlowPollInterval   = time.Second
)

// EventSource is a real-time event stream.
type EventSource interface {
	// Connect opens the stream. It returns chat.ErrInvalidAuth (wrapped) when
	// the credentials are rejected.
	Connect(ctx context.Context) error
	// Read returns every event buffered since the last call without blocking.
	// An error means the connection is gone.
	Read() ([]chat.Event, error)
	Close() error
}

// Directory looks up workspace members and channels.
type Directory interface {
	Users(ctx context.Context) ([]chat.User, error)
	User(ctx context.Context, id string) (chat.User, error)
	Channels(ctx context.Context) ([]chat.Channel, error)
}

// Persister saves task lists. It is called after every handled command.
type Persister interface {
	Persist() error
}

// Config tunes the loop timing.
type Config struct {
	ReconnectDelay     time.Duration
	HighActivityWindow time.Duration
	FastPollInterval   time.Duration
	SlowPollInterval   time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.HighActivityWindow <= 0 {
		c.HighActivityWindow = DefaultHighActivityWindow
	}
	if c.FastPollInterval <= 0 {
		c.FastPollInterval = DefaultFastPollInterval
	}
	if c.SlowPollInterval <= 0 {
		c.SlowPollInterval = DefaultSlowPollInterval
	}
	return c
}

// Bot owns the event loop and the directory caches it fills on connect.
type Bot struct {
	cfg       Config
	source    EventSource
	directory Directory
	registry  *conversation.Registry
	publish   *conversation.PublishTarget
	metrics   *metrics.Metrics
	log       *logger.Logger

	cadence   *Cadence
	users     map[string]chat.User
	persister Persister
}

// New creates a bot. The registry and publish target are shared with the
// conversations it creates.
func New(cfg Config, source EventSource, directory Directory, registry *conversation.Registry,
	publish *conversation.PublishTarget, m *metrics.Metrics, log *logger.Logger) *Bot {
	cfg = cfg.withDefaults()
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		cfg:       cfg,
		source:    source,
		directory: directory,
		registry:  registry,
		publish:   publish,
		metrics:   m,
		log:       log.WithComponent("bot"),
		cadence:   NewCadence(cfg.HighActivityWindow, cfg.FastPollInterval, cfg.SlowPollInterval),
		users:     make(map[string]chat.User),
	}
}

// SetPersister enables saving task lists after each command.
func (b *Bot) SetPersister(p Persister) {
	b.persister = p
}

// Run connects and processes events until ctx is cancelled. Connection
// failures are retried at a fixed delay forever; a failure inside the loop
// closes the connection and reconnects. Effects of a command that failed part
// way are kept. Run returns nil on cancellation and an error only when the
// credentials are rejected.
func (b *Bot) Run(ctx context.Context) error {
	for {
		if err := b.connectWithRetry(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err := b.serve(ctx)
		if closeErr := b.source.Close(); closeErr != nil {
			b.log.Debug().Err(closeErr).Msg("closing event source")
		}
		if ctx.Err() != nil {
			return nil
		}
		b.metrics.TransportErrorsTotal.Inc()
		b.log.Error().Err(err).Msg("event loop aborted, reconnecting")
	}
}

func (b *Bot) connectWithRetry(ctx context.Context) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		b.metrics.ConnectAttemptsTotal.Inc()
		if err := b.connect(ctx); err != nil {
			if errors.Is(err, chat.ErrInvalidAuth) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(b.cfg.ReconnectDelay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			b.log.Warn().Err(err).Dur("retry_in", next).Msg("connection failed")
		}),
	)
	return err
}

// connect opens the event stream and reloads the user and channel directory.
func (b *Bot) connect(ctx context.Context) error {
	if err := b.source.Connect(ctx); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}

	users, err := b.directory.Users(ctx)
	if err != nil {
		_ = b.source.Close()
		return fmt.Errorf("loading users: %w", err)
	}
	for _, u := range users {
		b.users[u.ID] = u
	}

	channels, err := b.directory.Channels(ctx)
	if err != nil {
		_ = b.source.Close()
		return fmt.Errorf("loading channels: %w", err)
	}
	if b.publish != nil && !b.publish.Resolve(channels) {
		b.log.Warn().Str("channel", b.publish.Name()).Msg("publish channel not found, posting by name")
	}

	b.log.Info().Int("users", len(users)).Int("channels", len(channels)).Msg("connected")
	return nil
}

func (b *Bot) serve(ctx context.Context) error {
	for {
		events, err := b.source.Read()
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}

		handled, err := b.Dispatch(ctx, events)
		if err != nil {
			return err
		}

		b.cadence.Observe(handled)
		interval := b.cadence.Interval()
		b.metrics.PollInterval.Set(interval.Seconds())

		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// Dispatch handles the first direct message in events and reports whether
// one was handled. Later direct messages in the same batch are dropped.
func (b *Bot) Dispatch(ctx context.Context, events []chat.Event) (bool, error) {
	handled := false
	for _, ev := range events {
		if !ev.IsDirectMessage() {
			b.metrics.EventsTotal.WithLabelValues("ignored").Inc()
			continue
		}
		if handled {
			b.metrics.EventsTotal.WithLabelValues("dropped").Inc()
			b.metrics.EventsDropped.Inc()
			b.log.Debug().Str("user", ev.User).Msg("dropping direct message, one command per poll cycle")
			continue
		}
		handled = true
		b.metrics.EventsTotal.WithLabelValues("handled").Inc()
		if err := b.handleDirectMessage(ctx, ev); err != nil {
			return true, err
		}
	}
	return handled, nil
}

func (b *Bot) handleDirectMessage(ctx context.Context, ev chat.Event) error {
	user := b.lookupUser(ctx, ev.User)

	conv := b.registry.Get(user, ev.Channel)
	b.metrics.ConversationsCurrent.Set(float64(b.registry.Len()))

	start := time.Now()
	cmd, err := conv.Handle(ctx, ev.Text)
	b.metrics.RecordCommand(cmd.Label(), err)

	// Save even when the reply failed: mutations made before it are kept.
	if b.persister != nil {
		if perr := b.persister.Persist(); perr != nil {
			b.log.Warn().Err(perr).Msg("saving task lists")
		}
	}

	event := b.log.Info()
	if err != nil {
		event = b.log.Error().Err(err)
	}
	event.Str("user", ev.User).
		Str("command", cmd.Label()).
		Str("phase", conv.Phase().String()).
		Dur("duration", time.Since(start)).
		Msg("command handled")
	return err
}

// lookupUser returns the cached profile, falling back to users.info. When
// that fails too the user is answered under the bare id.
func (b *Bot) lookupUser(ctx context.Context, id string) chat.User {
	if u, ok := b.users[id]; ok {
		return u
	}
	u, err := b.directory.User(ctx, id)
	if err != nil {
		// Not cached, so the next message retries the lookup.
		b.log.Warn().Err(err).Str("user", id).Msg("looking up user, using id as name")
		return chat.User{ID: id}
	}
	b.users[id] = u
	return u
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
