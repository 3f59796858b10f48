// Package client implements the Slack Web API and RTM clients.
//
// The client covers the calls the bot makes:
// - chat.postMessage, chat.update, chat.delete - the task list and replies
// - auth.test - credential check
// - users.list, users.info - display names and icons
// - conversations.list - resolving the publish channel
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/beadhub/standupbot/internal/chat"
)

// Client is the Slack Web API client.
type Client struct {
	api *slack.Client
}

// New creates a Slack client authenticated with a bot token.
func New(token string, opts ...slack.Option) *Client {
	return &Client{api: slack.New(token, opts...)}
}

// NewWithAPIURL creates a client that talks to apiURL instead of
// https://slack.com/api/. apiURL must end with "/".
func NewWithAPIURL(token, apiURL string) *Client {
	return New(token, slack.OptionAPIURL(apiURL))
}

// Error is an error response from the Slack API.
type Error struct {
	Method string
	Code   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Slack error (%s): %s", e.Method, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches chat.ErrInvalidAuth for credential failures.
func (e *Error) Is(target error) bool {
	return target == chat.ErrInvalidAuth && isAuthCode(e.Code)
}

func isAuthCode(code string) bool {
	switch code {
	case "invalid_auth", "not_authed", "account_inactive", "token_revoked", "token_expired":
		return true
	}
	return false
}

// wrap converts slack-go errors into *Error where Slack returned an error code.
func wrap(method string, err error) error {
	if err == nil {
		return nil
	}
	var resp slack.SlackErrorResponse
	if errors.As(err, &resp) {
		return &Error{Method: method, Code: resp.Err, Err: err}
	}
	return fmt.Errorf("calling %s: %w", method, err)
}

func messageOptions(text string, author chat.Author) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if author.Name != "" {
		opts = append(opts, slack.MsgOptionUsername(author.Name))
	}
	if author.IconURL != "" {
		opts = append(opts, slack.MsgOptionIconURL(author.IconURL))
	}
	return opts
}

// Post sends a new message and returns its timestamp.
func (c *Client) Post(ctx context.Context, channel, text string, author chat.Author) (chat.Handle, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channel, messageOptions(text, author)...)
	if err != nil {
		return "", wrap("chat.postMessage", err)
	}
	return chat.Handle(ts), nil
}

// Update replaces the text of an existing message.
func (c *Client) Update(ctx context.Context, channel string, handle chat.Handle, text string, author chat.Author) (chat.Handle, error) {
	_, ts, _, err := c.api.UpdateMessageContext(ctx, channel, string(handle), messageOptions(text, author)...)
	if err != nil {
		return "", wrap("chat.update", err)
	}
	return chat.Handle(ts), nil
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, channel string, handle chat.Handle) error {
	_, _, err := c.api.DeleteMessageContext(ctx, channel, string(handle))
	return wrap("chat.delete", err)
}

// Identity is the bot's own account, as reported by auth.test.
type Identity struct {
	UserID string
	User   string
	Team   string
}

// AuthTest checks the token and returns the bot identity.
func (c *Client) AuthTest(ctx context.Context) (*Identity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, wrap("auth.test", err)
	}
	return &Identity{UserID: resp.UserID, User: resp.User, Team: resp.Team}, nil
}

func toUser(u slack.User) chat.User {
	name := u.RealName
	if name == "" {
		name = u.Profile.RealName
	}
	return chat.User{ID: u.ID, RealName: name, IconURL: u.Profile.Image48}
}

// Users lists all workspace members.
func (c *Client) Users(ctx context.Context) ([]chat.User, error) {
	members, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return nil, wrap("users.list", err)
	}
	users := make([]chat.User, 0, len(members))
	for _, m := range members {
		users = append(users, toUser(m))
	}
	return users, nil
}

// User fetches a single member profile.
func (c *Client) User(ctx context.Context, id string) (chat.User, error) {
	u, err := c.api.GetUserInfoContext(ctx, id)
	if err != nil {
		return chat.User{}, wrap("users.info", err)
	}
	return toUser(*u), nil
}

// Channels lists the public, unarchived channels of the workspace.
func (c *Client) Channels(ctx context.Context) ([]chat.Channel, error) {
	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           200,
		Types:           []string{"public_channel"},
	}

	var out []chat.Channel
	for {
		channels, cursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, wrap("conversations.list", err)
		}
		for _, ch := range channels {
			out = append(out, chat.Channel{ID: ch.ID, Name: ch.Name})
		}
		if cursor == "" {
			return out, nil
		}
		params.Cursor = cursor
	}
}
