package conversation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/beadhub/standupbot/internal/tasks"
)

// ErrMalformedIDs is returned when the id list after a status keyword
// contains anything other than comma-separated unsigned integers.
var ErrMalformedIDs = errors.New("malformed task id list")

// Intent is what a line of user text asks for.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentStart
	IntentShow
	IntentMark
	IntentPublish
	IntentPreview
	IntentAdd
)

func (i Intent) String() string {
	switch i {
	case IntentStart:
		return "start"
	case IntentShow:
		return "show"
	case IntentMark:
		return "mark"
	case IntentPublish:
		return "publish"
	case IntentPreview:
		return "preview"
	case IntentAdd:
		return "add"
	}
	return "unknown"
}

// Command is a parsed line of user text.
type Command struct {
	Intent Intent

	// Status is the target status of an IntentMark command.
	// tasks.StatusDeleted means delete.
	Status tasks.Status
	// IDs are the task ids of an IntentMark command.
	IDs []int
	// Err is set when the id list could not be parsed.
	Err error

	// Descriptions are the tasks of an IntentAdd command, in input order.
	Descriptions []string
}

// Label names the command for logs and metrics.
func (c Command) Label() string {
	if c.Intent == IntentMark {
		return c.Status.String()
	}
	return c.Intent.String()
}

// markKeywords are checked in this order; the first prefix match wins.
var markKeywords = []struct {
	word   string
	status tasks.Status
}{
	{"done", tasks.StatusDone},
	{"wip", tasks.StatusWIP},
	{"cancelled", tasks.StatusCancelled},
	{"delete", tasks.StatusDeleted},
	{"todo", tasks.StatusNew},
}

// Parse classifies text into exactly one command. Keywords match
// case-insensitively on the start of the text.
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	switch {
	case strings.HasPrefix(lower, "start"):
		return Command{Intent: IntentStart}
	case strings.HasPrefix(lower, "show"):
		return Command{Intent: IntentShow}
	}

	for _, kw := range markKeywords {
		if strings.HasPrefix(lower, kw.word) {
			ids, err := ParseIDs(text)
			return Command{Intent: IntentMark, Status: kw.status, IDs: ids, Err: err}
		}
	}

	switch {
	case strings.HasPrefix(lower, "publish"):
		return Command{Intent: IntentPublish}
	case strings.HasPrefix(lower, "preview"):
		return Command{Intent: IntentPreview}
	case strings.HasPrefix(text, "-"):
		return Command{Intent: IntentAdd, Descriptions: parseAdd(text)}
	}
	return Command{Intent: IntentUnknown}
}

// ParseIDs parses the comma-separated id list that follows the first word of
// text. A missing list yields no ids and no error. Any token that is not an
// unsigned integer fails the whole list with ErrMalformedIDs.
func ParseIDs(text string) ([]int, error) {
	text = strings.TrimSpace(text)
	idx := strings.IndexFunc(text, isSpace)
	if idx < 0 {
		return nil, nil
	}
	rest := strings.TrimSpace(text[idx:])
	if rest == "" {
		return nil, nil
	}

	parts := strings.Split(rest, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 31)
		if err != nil {
			return nil, ErrMalformedIDs
		}
		ids = append(ids, int(n))
	}
	return ids, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// parseAdd returns one description per "-" line, skipping lines that are
// empty after the marker is removed.
func parseAdd(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		desc := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if desc == "" {
			continue
		}
		out = append(out, desc)
	}
	return out
}
