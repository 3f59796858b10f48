package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/beadhub/standupbot/internal/chat"
	"github.com/beadhub/standupbot/internal/tasks"
)

type call struct {
	op      string
	channel string
	handle  chat.Handle
	text    string
	author  chat.Author
}

// fakeTransport records every call and hands out sequential handles.
type fakeTransport struct {
	calls   []call
	next    int
	failOn  string
	failErr error
}

func (f *fakeTransport) newHandle() chat.Handle {
	f.next++
	return chat.Handle(strconv.Itoa(f.next))
}

func (f *fakeTransport) Post(_ context.Context, channel, text string, author chat.Author) (chat.Handle, error) {
	f.calls = append(f.calls, call{op: "post", channel: channel, text: text, author: author})
	if f.failOn == "post" {
		return "", f.failErr
	}
	return f.newHandle(), nil
}

func (f *fakeTransport) Update(_ context.Context, channel string, handle chat.Handle, text string, author chat.Author) (chat.Handle, error) {
	f.calls = append(f.calls, call{op: "update", channel: channel, handle: handle, text: text, author: author})
	if f.failOn == "update" {
		return "", f.failErr
	}
	return handle, nil
}

func (f *fakeTransport) Delete(_ context.Context, channel string, handle chat.Handle) error {
	f.calls = append(f.calls, call{op: "delete", channel: channel, handle: handle})
	if f.failOn == "delete" {
		return f.failErr
	}
	return nil
}

func (f *fakeTransport) last() call {
	return f.calls[len(f.calls)-1]
}

func (f *fakeTransport) reset() {
	f.calls = nil
}

func (f *fakeTransport) ops() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.op)
	}
	return out
}

func newTestConversation(t *testing.T) (*Conversation, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	conv := New(
		chat.User{ID: "U1", RealName: "Ada Lovelace", IconURL: "https://example.com/ada.png"},
		"D1",
		tasks.NewList(),
		Settings{
			Transport: transport,
			Publish:   publishTarget("standup", "C9"),
		},
	)
	return conv, transport
}

func mustHandle(t *testing.T, conv *Conversation, text string) {
	t.Helper()
	if _, err := conv.Handle(context.Background(), text); err != nil {
		t.Fatalf("Handle(%q) error: %v", text, err)
	}
}

func TestHandle_AddCreatesNewTasksInOrder(t *testing.T) {
	conv, _ := newTestConversation(t)

	mustHandle(t, conv, "- buy milk\n- call dentist")

	got := conv.list.Tasks()
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	if got[0].Description != "buy milk" || got[1].Description != "call dentist" {
		t.Errorf("tasks = %+v", got)
	}
	if !reflect.DeepEqual(conv.NewTasks(), []int{1, 2}) {
		t.Errorf("NewTasks = %v, want [1 2]", conv.NewTasks())
	}
	if !reflect.DeepEqual(conv.UpdatedTasks(), []int{1, 2}) {
		t.Errorf("UpdatedTasks = %v, want [1 2]", conv.UpdatedTasks())
	}
}

func TestHandle_DoneMarksAndLeavesNewSet(t *testing.T) {
	conv, _ := newTestConversation(t)
	mustHandle(t, conv, "- a\n- b\n- c")

	mustHandle(t, conv, "done 1,3")

	for id, want := range map[int]tasks.Status{1: tasks.StatusDone, 2: tasks.StatusNew, 3: tasks.StatusDone} {
		task, _ := conv.list.Get(id)
		if task.Status != want {
			t.Errorf("task %d status = %v, want %v", id, task.Status, want)
		}
	}
	if !reflect.DeepEqual(conv.NewTasks(), []int{2}) {
		t.Errorf("NewTasks = %v, want [2]", conv.NewTasks())
	}
}

func TestHandle_TodoKeepsNewMembership(t *testing.T) {
	conv, _ := newTestConversation(t)
	mustHandle(t, conv, "- a")
	mustHandle(t, conv, "wip 1")
	if len(conv.NewTasks()) != 0 {
		t.Fatalf("NewTasks after wip = %v, want empty", conv.NewTasks())
	}

	mustHandle(t, conv, "- b")
	mustHandle(t, conv, "todo 2")
	if !reflect.DeepEqual(conv.NewTasks(), []int{2}) {
		t.Errorf("NewTasks after todo = %v, want [2]", conv.NewTasks())
	}
}

func TestHandle_DeleteRemovesTask(t *testing.T) {
	conv, transport := newTestConversation(t)
	mustHandle(t, conv, "- a\n- b\n- c")

	mustHandle(t, conv, "delete 2")
	if _, ok := conv.list.Get(2); ok {
		t.Fatal("task 2 still present after delete")
	}
	if !reflect.DeepEqual(conv.UpdatedTasks(), []int{1, 3}) {
		t.Errorf("UpdatedTasks = %v, want [1 3]", conv.UpdatedTasks())
	}
	if !reflect.DeepEqual(conv.NewTasks(), []int{1, 3}) {
		t.Errorf("NewTasks = %v, want [1 3]", conv.NewTasks())
	}

	mustHandle(t, conv, "show")
	if strings.Contains(transport.last().text, "2:") {
		t.Errorf("show rendered deleted task: %q", transport.last().text)
	}
}

func TestHandle_DeleteAbsentIsNoop(t *testing.T) {
	conv, _ := newTestConversation(t)
	mustHandle(t, conv, "- a")

	mustHandle(t, conv, "delete 7")
	mustHandle(t, conv, "delete 7")
	if conv.list.Len() != 1 {
		t.Errorf("Len = %d, want 1", conv.list.Len())
	}
}

func TestHandle_MissingIDsAreSkipped(t *testing.T) {
	conv, _ := newTestConversation(t)
	mustHandle(t, conv, "- a\n- b")

	mustHandle(t, conv, "done 2,42")

	task, _ := conv.list.Get(2)
	if task.Status != tasks.StatusDone {
		t.Errorf("task 2 status = %v, want done", task.Status)
	}
	if !reflect.DeepEqual(conv.UpdatedTasks(), []int{1, 2}) {
		t.Errorf("UpdatedTasks = %v, want [1 2] (42 must not be tracked)", conv.UpdatedTasks())
	}
}

func TestHandle_BareDoneShowsErrorHelp(t *testing.T) {
	conv, transport := newTestConversation(t)
	mustHandle(t, conv, "- a")
	before := conv.list.Tasks()
	transport.reset()

	mustHandle(t, conv, "done")

	if !reflect.DeepEqual(conv.list.Tasks(), before) {
		t.Errorf("store changed: %+v", conv.list.Tasks())
	}
	if len(transport.calls) == 0 || transport.calls[0].text != confusedText {
		t.Fatalf("first response = %+v, want the error text", transport.calls)
	}
}

func TestHandle_MalformedIDsShowErrorHelp(t *testing.T) {
	conv, transport := newTestConversation(t)
	mustHandle(t, conv, "- a\n- b")
	transport.reset()

	mustHandle(t, conv, "done 1,two")

	task, _ := conv.list.Get(1)
	if task.Status != tasks.StatusNew {
		t.Errorf("task 1 status = %v, want new", task.Status)
	}
	if transport.calls[0].text != confusedText {
		t.Errorf("first response = %q, want error text", transport.calls[0].text)
	}
}

func TestHandle_UnknownShowsErrorHelpOnly(t *testing.T) {
	conv, transport := newTestConversation(t)

	mustHandle(t, conv, "what is this")

	if transport.calls[0].text != confusedText {
		t.Errorf("first response = %q, want error text", transport.calls[0].text)
	}
	for _, c := range transport.calls {
		if c.text == EmptyListText {
			t.Error("unknown command should not render the list")
		}
	}
}

func TestHandle_StartEntersAwaitingCommands(t *testing.T) {
	conv, transport := newTestConversation(t)
	if conv.Phase() != PhaseAwaitingStart {
		t.Fatalf("initial phase = %v", conv.Phase())
	}

	mustHandle(t, conv, "start")

	if conv.Phase() != PhaseAwaitingCommands {
		t.Errorf("phase = %v, want awaiting_commands", conv.Phase())
	}
	if transport.calls[0].text != greetingText {
		t.Errorf("first response = %q, want greeting", transport.calls[0].text)
	}
	if transport.last().text != EmptyListText {
		t.Errorf("last response = %q, want empty list placeholder", transport.last().text)
	}
}

// The phase is descriptive: commands work before "start" was ever sent.
func TestHandle_PhaseDoesNotGateCommands(t *testing.T) {
	conv, _ := newTestConversation(t)

	mustHandle(t, conv, "- a")
	mustHandle(t, conv, "done 1")

	task, _ := conv.list.Get(1)
	if task.Status != tasks.StatusDone {
		t.Errorf("status = %v, want done", task.Status)
	}
	if conv.Phase() != PhaseAwaitingStart {
		t.Errorf("phase = %v, want awaiting_start", conv.Phase())
	}
}

func TestShowTaskList_RepostDeletesPrevious(t *testing.T) {
	conv, transport := newTestConversation(t)

	mustHandle(t, conv, "show")
	first := conv.ListHandle()
	if first == "" {
		t.Fatal("expected a list handle after show")
	}
	transport.reset()

	mustHandle(t, conv, "show")

	want := []string{"delete", "post"}
	if !reflect.DeepEqual(transport.ops(), want) {
		t.Fatalf("ops = %v, want %v", transport.ops(), want)
	}
	if transport.calls[0].handle != first || transport.calls[0].channel != "D1" {
		t.Errorf("deleted %+v, want handle %q in D1", transport.calls[0], first)
	}
	if conv.ListHandle() == first {
		t.Error("list handle not replaced")
	}
}

func TestShowTaskList_RepostIgnoresDeleteFailure(t *testing.T) {
	conv, transport := newTestConversation(t)
	mustHandle(t, conv, "show")

	transport.failOn = "delete"
	transport.failErr = errors.New("message_not_found")
	mustHandle(t, conv, "show")

	if transport.last().op != "post" {
		t.Errorf("last op = %q, want post", transport.last().op)
	}
}

func TestHandle_AddEditsListInPlace(t *testing.T) {
	conv, transport := newTestConversation(t)
	mustHandle(t, conv, "show")
	handle := conv.ListHandle()
	transport.reset()

	mustHandle(t, conv, "- new thing")

	if !reflect.DeepEqual(transport.ops(), []string{"update"}) {
		t.Fatalf("ops = %v, want [update]", transport.ops())
	}
	if transport.calls[0].handle != handle {
		t.Errorf("updated handle %q, want %q", transport.calls[0].handle, handle)
	}
	if !strings.Contains(transport.calls[0].text, "1::su-todo: new thing") {
		t.Errorf("updated text = %q", transport.calls[0].text)
	}
}

func TestHandle_AddWithoutListPosts(t *testing.T) {
	conv, transport := newTestConversation(t)

	mustHandle(t, conv, "- first")

	if !reflect.DeepEqual(transport.ops(), []string{"post"}) {
		t.Errorf("ops = %v, want [post]", transport.ops())
	}
}

func TestHandle_Publish(t *testing.T) {
	conv, transport := newTestConversation(t)
	mustHandle(t, conv, "- a\n- b\n- c\n- d")
	mustHandle(t, conv, "publish") // everything new
	mustHandle(t, conv, "- e")
	mustHandle(t, conv, "done 1")
	mustHandle(t, conv, "cancelled 2")
	mustHandle(t, conv, "wip 3")
	mustHandle(t, conv, "start")
	transport.reset()

	mustHandle(t, conv, "publish")

	var published *call
	for i := range transport.calls {
		if transport.calls[i].channel == "C9" {
			published = &transport.calls[i]
		}
	}
	if published == nil {
		t.Fatal("nothing posted to the publish channel")
	}
	if published.author.Name != "Ada Lovelace (via @standupbot)" || published.author.IconURL != "https://example.com/ada.png" {
		t.Errorf("publish author = %+v", published.author)
	}
	wantText := "*Previously*\n" +
		":su-done: a\n" +
		":su-blocked: b\n" +
		":su-wip: c\n" +
		":su-todo: d\n" +
		"\n*New Tasks*\n" +
		":su-todo: e\n" +
		"\n"
	if published.text != wantText {
		t.Errorf("published text =\n%q\nwant\n%q", published.text, wantText)
	}
	if conv.PublishedHandle() == "" {
		t.Error("published handle not recorded")
	}

	if got := len(conv.list.Tasks()); got != 3 {
		t.Fatalf("tasks after publish = %d, want 3", got)
	}
	for _, task := range conv.list.Tasks() {
		if task.Status.Terminal() {
			t.Errorf("terminal task survived publish: %+v", task)
		}
	}
	if len(conv.NewTasks()) != 0 || len(conv.UpdatedTasks()) != 0 {
		t.Errorf("sets not cleared: new=%v updated=%v", conv.NewTasks(), conv.UpdatedTasks())
	}
	if conv.Phase() != PhaseAwaitingStart {
		t.Errorf("phase = %v, want awaiting_start", conv.Phase())
	}
	if transport.calls[0].text != publishingPrefix+"standup" {
		t.Errorf("first response = %q", transport.calls[0].text)
	}
	if !strings.HasPrefix(transport.last().text, "3::su-wip: c\n") {
		t.Errorf("list after publish = %q", transport.last().text)
	}
	for _, c := range transport.calls {
		if c.op != "delete" && c.channel != "C9" && c.author.Name != DefaultBotName {
			t.Errorf("DM message authored as %q", c.author.Name)
		}
	}
}

func TestHandle_PreviewIsReadOnly(t *testing.T) {
	conv, transport := newTestConversation(t)
	mustHandle(t, conv, "- a\n- b")
	mustHandle(t, conv, "done 1")
	handle := conv.ListHandle()
	newBefore, updatedBefore := conv.NewTasks(), conv.UpdatedTasks()
	transport.reset()

	mustHandle(t, conv, "preview")

	if !reflect.DeepEqual(transport.ops(), []string{"post"}) {
		t.Fatalf("ops = %v, want a single post", transport.ops())
	}
	if transport.calls[0].channel != "D1" {
		t.Errorf("preview went to %q, want the DM", transport.calls[0].channel)
	}
	if !strings.Contains(transport.calls[0].text, "*Previously*\n:su-done: a\n") {
		t.Errorf("preview text = %q", transport.calls[0].text)
	}
	if conv.ListHandle() != handle || conv.PublishedHandle() != "" {
		t.Error("preview changed message handles")
	}
	if !reflect.DeepEqual(conv.NewTasks(), newBefore) || !reflect.DeepEqual(conv.UpdatedTasks(), updatedBefore) {
		t.Error("preview changed task sets")
	}
	if conv.list.Len() != 2 {
		t.Error("preview changed the store")
	}
}

func TestHandle_TransportErrorIsReturned(t *testing.T) {
	conv, transport := newTestConversation(t)
	boom := errors.New("connection reset")
	transport.failOn = "post"
	transport.failErr = boom

	cmd, err := conv.Handle(context.Background(), "- a")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if cmd.Intent != IntentAdd {
		t.Errorf("Intent = %v, want add", cmd.Intent)
	}
	if conv.list.Len() != 1 {
		t.Error("effects before the failure must be kept")
	}
}

// After every mutation the list view shows tasks outside the new set first,
// then the new ones, each group in store order.
func TestRender_OrderingInvariantUnderRandomCommands(t *testing.T) {
	conv, _ := newTestConversation(t)
	rng := rand.New(rand.NewSource(42))
	keywords := []string{"done", "wip", "cancelled", "delete", "todo"}

	for step := 0; step < 300; step++ {
		var text string
		switch rng.Intn(4) {
		case 0:
			text = fmt.Sprintf("- task %d", step)
		case 1:
			text = "publish"
		default:
			text = fmt.Sprintf("%s %d,%d", keywords[rng.Intn(len(keywords))], rng.Intn(step+2)+1, rng.Intn(step+2)+1)
		}
		mustHandle(t, conv, text)

		var want strings.Builder
		var newPart strings.Builder
		newSet := set(conv.NewTasks()...)
		for _, task := range conv.list.Tasks() {
			line := fmt.Sprintf("%d:%s %s\n", task.ID, Emoji(task.Status), task.Description)
			if _, ok := newSet[task.ID]; ok {
				newPart.WriteString(line)
			} else {
				want.WriteString(line)
			}
		}
		want.WriteString(newPart.String())
		want.WriteString("\n")

		got := conv.Render(ModeList)
		if conv.list.Len() == 0 {
			if got != EmptyListText {
				t.Fatalf("step %d: empty list rendered %q", step, got)
			}
			continue
		}
		if got != want.String() {
			t.Fatalf("step %d (%q): got\n%q\nwant\n%q", step, text, got, want.String())
		}
	}
}
