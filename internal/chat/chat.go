// Package chat defines the platform-neutral types shared by the bot core and
// the Slack adapter.
package chat

import (
	"context"
	"errors"
	"strings"
)

// Handle identifies a previously sent message (a Slack "ts").
type Handle string

// Event is an inbound real-time event.
type Event struct {
	Type    string
	Channel string
	User    string
	Text    string
	Subtype string
}

// IsDirectMessage reports whether the event is a plain user message in a DM
// channel. Edits, bot posts and joins carry a subtype and are ignored.
func (e Event) IsDirectMessage() bool {
	return e.Type == "message" && e.Subtype == "" && strings.HasPrefix(e.Channel, "D")
}

// Author is the identity a message is displayed under.
type Author struct {
	Name    string
	IconURL string
}

// User is a workspace member profile.
type User struct {
	ID       string
	RealName string
	IconURL  string
}

// Channel is a public channel known to the bot.
type Channel struct {
	ID   string
	Name string
}

// Transport sends, edits and deletes messages.
type Transport interface {
	Post(ctx context.Context, channel, text string, author Author) (Handle, error)
	Update(ctx context.Context, channel string, handle Handle, text string, author Author) (Handle, error)
	Delete(ctx context.Context, channel string, handle Handle) error
}

// ErrInvalidAuth is returned when the platform rejects the bot's credentials.
// Reconnecting cannot fix it.
var ErrInvalidAuth = errors.New("invalid auth")
