// Package conversation implements the per-user standup conversation: command
// parsing, task-list rendering and the message protocol that keeps exactly
// one live task-list message in each user's DM.
package conversation

import (
	"context"
	"fmt"
	"sort"

	"github.com/beadhub/standupbot/internal/chat"
	"github.com/beadhub/standupbot/internal/logger"
	"github.com/beadhub/standupbot/internal/tasks"
)

// Phase is the descriptive state of a conversation. It is recorded but does
// not gate which commands are accepted.
type Phase int

const (
	PhaseAwaitingStart Phase = iota
	PhaseAwaitingCommands
)

func (p Phase) String() string {
	if p == PhaseAwaitingCommands {
		return "awaiting_commands"
	}
	return "awaiting_start"
}

// DefaultBotName is the author shown on everything except published lists.
const DefaultBotName = "Standup"

// Settings are shared by every conversation.
type Settings struct {
	Transport chat.Transport
	// BotName is the display name of bot-authored messages.
	BotName string
	// Publish is where published lists are posted.
	Publish *PublishTarget
	Log     *logger.Logger
}

// Conversation is one user's session with the bot.
type Conversation struct {
	settings Settings
	user     chat.User
	channel  string
	list     *tasks.List
	log      *logger.Logger

	phase Phase
	// newTasks are ids added since the last publish.
	newTasks map[int]struct{}
	// updatedTasks are ids touched since the last publish.
	updatedTasks map[int]struct{}

	listHandle      chat.Handle
	publishedHandle chat.Handle
}

// New creates a conversation for user in the DM channel, backed by list.
func New(user chat.User, channel string, list *tasks.List, settings Settings) *Conversation {
	if settings.BotName == "" {
		settings.BotName = DefaultBotName
	}
	if settings.Publish == nil {
		settings.Publish = NewPublishTarget("")
	}
	log := settings.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Conversation{
		settings:     settings,
		user:         user,
		channel:      channel,
		list:         list,
		log:          log.WithComponent("conversation").WithUser(user.ID),
		phase:        PhaseAwaitingStart,
		newTasks:     make(map[int]struct{}),
		updatedTasks: make(map[int]struct{}),
	}
}

// Handle parses text and runs the resulting command. The parsed command is
// returned even when a transport call fails part way; effects applied before
// the failure are kept.
func (c *Conversation) Handle(ctx context.Context, text string) (Command, error) {
	cmd := Parse(text)

	var err error
	switch cmd.Intent {
	case IntentStart:
		err = c.start(ctx)
	case IntentShow:
		err = c.showTaskList(ctx, false)
	case IntentMark:
		err = c.mark(ctx, cmd)
	case IntentPublish:
		err = c.publish(ctx)
	case IntentPreview:
		err = c.preview(ctx)
	case IntentAdd:
		err = c.add(ctx, cmd.Descriptions)
	default:
		err = c.showHelp(ctx, true)
	}
	return cmd, err
}

func (c *Conversation) start(ctx context.Context) error {
	c.phase = PhaseAwaitingCommands
	if _, err := c.send(ctx, greetingText); err != nil {
		return err
	}
	if err := c.showHelp(ctx, false); err != nil {
		return err
	}
	return c.showTaskList(ctx, false)
}

func (c *Conversation) mark(ctx context.Context, cmd Command) error {
	if cmd.Err != nil || len(cmd.IDs) == 0 {
		c.log.Debug().Err(cmd.Err).Str("status", cmd.Status.String()).Msg("mark command without usable ids")
		if err := c.showHelp(ctx, true); err != nil {
			return err
		}
		return c.showTaskList(ctx, false)
	}

	if cmd.Status == tasks.StatusDeleted {
		for _, id := range c.list.Delete(cmd.IDs...) {
			delete(c.updatedTasks, id)
			delete(c.newTasks, id)
		}
	} else {
		for _, id := range c.list.SetStatus(cmd.Status, cmd.IDs...) {
			c.updatedTasks[id] = struct{}{}
			if cmd.Status != tasks.StatusNew {
				delete(c.newTasks, id)
			}
		}
	}

	if _, err := c.send(ctx, ackText(cmd.Status)); err != nil {
		return err
	}
	return c.showTaskList(ctx, false)
}

func (c *Conversation) add(ctx context.Context, descriptions []string) error {
	for _, desc := range descriptions {
		id := c.list.Add(desc)
		c.newTasks[id] = struct{}{}
		c.updatedTasks[id] = struct{}{}
	}
	return c.showTaskList(ctx, true)
}

func (c *Conversation) publish(ctx context.Context) error {
	target := c.settings.Publish
	if _, err := c.send(ctx, publishingPrefix+target.Name()); err != nil {
		return err
	}

	author := chat.Author{
		Name:    c.displayName() + " (via @standupbot)",
		IconURL: c.user.IconURL,
	}
	handle, err := c.settings.Transport.Post(ctx, target.Channel(), c.Render(ModePublish), author)
	if err != nil {
		return fmt.Errorf("posting to #%s: %w", target.Name(), err)
	}
	c.publishedHandle = handle

	pruned := c.list.Prune()
	c.newTasks = make(map[int]struct{})
	c.updatedTasks = make(map[int]struct{})
	c.phase = PhaseAwaitingStart
	c.log.Info().Int("pruned", len(pruned)).Str("channel", target.Name()).Msg("task list published")

	if _, err := c.send(ctx, newListText); err != nil {
		return err
	}
	return c.showTaskList(ctx, false)
}

func (c *Conversation) preview(ctx context.Context) error {
	text := previewPrefix + c.settings.Publish.Name() + "_\n" + c.Render(ModePublish)
	_, err := c.send(ctx, text)
	return err
}

func (c *Conversation) showHelp(ctx context.Context, isError bool) error {
	lines := []string{usageText, publishHintText(c.settings.Publish.Name()), rememberText}
	if isError {
		lines = append([]string{confusedText}, lines...)
	}
	for _, line := range lines {
		if _, err := c.send(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

// showTaskList displays the current list. With update set and a live list
// message, that message is edited in place. Otherwise the old list message is
// deleted and a new one posted, so the list ends up below any replies.
func (c *Conversation) showTaskList(ctx context.Context, update bool) error {
	text := c.Render(ModeList)
	author := c.botAuthor()

	if update && c.listHandle != "" {
		handle, err := c.settings.Transport.Update(ctx, c.channel, c.listHandle, text, author)
		if err != nil {
			return fmt.Errorf("updating task list: %w", err)
		}
		c.listHandle = handle
		return nil
	}

	if c.listHandle != "" {
		// The user may have deleted the message themselves; a stale handle
		// must not block posting the new list.
		if err := c.settings.Transport.Delete(ctx, c.channel, c.listHandle); err != nil {
			c.log.Warn().Err(err).Str("ts", string(c.listHandle)).Msg("deleting previous task list")
		}
		c.listHandle = ""
	}

	handle, err := c.settings.Transport.Post(ctx, c.channel, text, author)
	if err != nil {
		return fmt.Errorf("posting task list: %w", err)
	}
	c.listHandle = handle
	return nil
}

func (c *Conversation) send(ctx context.Context, text string) (chat.Handle, error) {
	handle, err := c.settings.Transport.Post(ctx, c.channel, text, c.botAuthor())
	if err != nil {
		return "", fmt.Errorf("sending response: %w", err)
	}
	return handle, nil
}

func (c *Conversation) botAuthor() chat.Author {
	return chat.Author{Name: c.settings.BotName}
}

func (c *Conversation) displayName() string {
	if c.user.RealName != "" {
		return c.user.RealName
	}
	return c.user.ID
}

// Render formats the user's list in the given mode.
func (c *Conversation) Render(mode Mode) string {
	return Render(c.list.Tasks(), c.newTasks, mode)
}

// Phase returns the current phase.
func (c *Conversation) Phase() Phase { return c.phase }

// NewTasks returns the ids added since the last publish, ascending.
func (c *Conversation) NewTasks() []int { return sortedIDs(c.newTasks) }

// UpdatedTasks returns the ids touched since the last publish, ascending.
func (c *Conversation) UpdatedTasks() []int { return sortedIDs(c.updatedTasks) }

// ListHandle returns the handle of the live task-list message, if any.
func (c *Conversation) ListHandle() chat.Handle { return c.listHandle }

// PublishedHandle returns the handle of the last published list, if any.
func (c *Conversation) PublishedHandle() chat.Handle { return c.publishedHandle }

// User returns the cached profile of the conversation's user.
func (c *Conversation) User() chat.User { return c.user }

func sortedIDs(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
