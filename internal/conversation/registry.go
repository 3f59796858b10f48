package conversation

import (
	"sync"

	"github.com/beadhub/standupbot/internal/chat"
	"github.com/beadhub/standupbot/internal/tasks"
)

// Registry holds one Conversation per user for the life of the process.
// Conversations are created on first use and never removed.
type Registry struct {
	mu       sync.Mutex
	settings Settings
	tasks    *tasks.Manager
	byUser   map[string]*Conversation
}

// NewRegistry creates an empty registry. Task lists come from manager.
func NewRegistry(manager *tasks.Manager, settings Settings) *Registry {
	return &Registry{
		settings: settings,
		tasks:    manager,
		byUser:   make(map[string]*Conversation),
	}
}

// Get returns the conversation for user, creating it in channel if this is
// the user's first message.
func (r *Registry) Get(user chat.User, channel string) *Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.byUser[user.ID]
	if !ok {
		conv = New(user, channel, r.tasks.List(user.ID), r.settings)
		r.byUser[user.ID] = conv
	}
	return conv
}

// Lookup returns an existing conversation without creating one.
func (r *Registry) Lookup(userID string) (*Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byUser[userID]
	return conv, ok
}

// Len returns the number of conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
