package conversation

import (
	"fmt"
	"strings"

	"github.com/beadhub/standupbot/internal/tasks"
)

// EmptyListText replaces all other output when a list has no tasks.
const EmptyListText = "_You have no tasks yet, what do you say you do around here?_ :thinking_face: " +
	"Enter a task by simply typing something like `-new task for today` and this message will get updated.\n"

// Mode selects the rendering format.
type Mode int

const (
	// ModeList is the editable DM view with task ids.
	ModeList Mode = iota
	// ModePublish is the grouped view posted to the shared channel.
	ModePublish
)

// Emoji returns the Slack emoji shown for a stored status.
func Emoji(status tasks.Status) string {
	switch status {
	case tasks.StatusWIP:
		return ":su-wip:"
	case tasks.StatusDone:
		return ":su-done:"
	case tasks.StatusCancelled:
		return ":su-blocked:"
	default:
		return ":su-todo:"
	}
}

// Render formats list. Tasks whose id is in newTasks are placed after all
// other tasks; relative order within both groups is kept.
func Render(list []tasks.Task, newTasks map[int]struct{}, mode Mode) string {
	if len(list) == 0 {
		return EmptyListText
	}

	var previous, added strings.Builder
	for _, task := range list {
		line := renderTask(task, mode)
		if _, ok := newTasks[task.ID]; ok {
			added.WriteString(line)
		} else {
			previous.WriteString(line)
		}
	}

	var b strings.Builder
	if mode == ModePublish {
		if previous.Len() > 0 {
			b.WriteString("*Previously*\n")
			b.WriteString(previous.String())
		}
		if added.Len() > 0 {
			b.WriteString("\n*New Tasks*\n")
			b.WriteString(added.String())
		}
	} else {
		b.WriteString(previous.String())
		b.WriteString(added.String())
	}
	b.WriteString("\n")
	return b.String()
}

func renderTask(task tasks.Task, mode Mode) string {
	if mode == ModePublish {
		return fmt.Sprintf("%s %s\n", Emoji(task.Status), task.Description)
	}
	return fmt.Sprintf("%d:%s %s\n", task.ID, Emoji(task.Status), task.Description)
}
