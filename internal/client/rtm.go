package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/beadhub/standupbot/internal/chat"
)

// DefaultConnectTimeout bounds how long Connect waits for the RTM handshake.
const DefaultConnectTimeout = 30 * time.Second

// ErrStreamClosed is returned by Read after the RTM event channel is closed.
var ErrStreamClosed = errors.New("rtm event stream closed")

// RTM is a real-time event source backed by the Slack RTM API.
type RTM struct {
	api            *slack.Client
	rtm            *slack.RTM
	connectTimeout time.Duration
}

// RTM returns an event source that shares the client's credentials.
func (c *Client) RTM() *RTM {
	return &RTM{api: c.api, connectTimeout: DefaultConnectTimeout}
}

// Connect opens a new RTM session and waits until Slack confirms it.
func (r *RTM) Connect(ctx context.Context) error {
	r.rtm = r.api.NewRTM()
	go r.rtm.ManageConnection()

	timer := time.NewTimer(r.connectTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = r.Close()
			return ctx.Err()
		case <-timer.C:
			_ = r.Close()
			return fmt.Errorf("rtm handshake timed out after %s", r.connectTimeout)
		case ev, ok := <-r.rtm.IncomingEvents:
			if !ok {
				return ErrStreamClosed
			}
			switch data := ev.Data.(type) {
			case *slack.ConnectedEvent:
				return nil
			case *slack.InvalidAuthEvent:
				_ = r.Close()
				return &Error{Method: "rtm.connect", Code: "invalid_auth"}
			case *slack.ConnectionErrorEvent:
				_ = r.Close()
				return fmt.Errorf("rtm connect attempt %d: %w", data.Attempt, data.ErrorObj)
			}
		}
	}
}

// Read drains the events buffered since the last call. It never blocks.
func (r *RTM) Read() ([]chat.Event, error) {
	if r.rtm == nil {
		return nil, ErrStreamClosed
	}

	var out []chat.Event
	for {
		select {
		case ev, ok := <-r.rtm.IncomingEvents:
			if !ok {
				return out, ErrStreamClosed
			}
			event, keep, err := translate(ev)
			if err != nil {
				return out, err
			}
			if keep {
				out = append(out, event)
			}
		default:
			return out, nil
		}
	}
}

// Close ends the RTM session. It is safe to call more than once.
func (r *RTM) Close() error {
	if r.rtm == nil {
		return nil
	}
	err := r.rtm.Disconnect()
	r.rtm = nil
	return err
}

// translate maps an RTM event to a chat.Event. Connection-level events
// become errors; bookkeeping events are not passed on.
func translate(ev slack.RTMEvent) (chat.Event, bool, error) {
	switch data := ev.Data.(type) {
	case *slack.MessageEvent:
		return chat.Event{
			Type:    ev.Type,
			Channel: data.Channel,
			User:    data.User,
			Text:    data.Text,
			Subtype: data.SubType,
		}, true, nil
	case *slack.InvalidAuthEvent:
		return chat.Event{}, false, &Error{Method: "rtm", Code: "invalid_auth"}
	case *slack.DisconnectedEvent:
		return chat.Event{}, false, fmt.Errorf("rtm disconnected: %v", data.Cause)
	case *slack.ConnectionErrorEvent:
		return chat.Event{}, false, fmt.Errorf("rtm connection error: %w", data.ErrorObj)
	case *slack.ConnectingEvent, *slack.ConnectedEvent, *slack.HelloEvent, *slack.LatencyReport, *slack.RTMError:
		return chat.Event{}, false, nil
	}
	return chat.Event{Type: ev.Type}, true, nil
}
