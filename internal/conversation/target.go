package conversation

import (
	"strings"
	"sync"

	"github.com/beadhub/standupbot/internal/chat"
)

// PublishTarget is the shared channel lists are published to. It is created
// from the configured channel name and resolved to a channel id once the
// channel directory has been loaded.
type PublishTarget struct {
	mu   sync.RWMutex
	name string
	id   string
}

// NewPublishTarget creates an unresolved target. A leading "#" is dropped.
func NewPublishTarget(name string) *PublishTarget {
	return &PublishTarget{name: strings.TrimPrefix(strings.TrimSpace(name), "#")}
}

// Name returns the channel name without "#".
func (p *PublishTarget) Name() string {
	return p.name
}

// Resolve looks the target up in channels by name and records its id.
// It reports whether a match was found; an unmatched target keeps posting by
// name, which Slack also accepts.
func (p *PublishTarget) Resolve(channels []chat.Channel) bool {
	for _, ch := range channels {
		if ch.Name == p.name {
			p.mu.Lock()
			p.id = ch.ID
			p.mu.Unlock()
			return true
		}
	}
	return false
}

// Channel returns the id to post to, or the name when unresolved.
func (p *PublishTarget) Channel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.id != "" {
		return p.id
	}
	return p.name
}
