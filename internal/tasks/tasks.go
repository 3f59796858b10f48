// Package tasks holds each user's in-memory task list.
//
// A List keeps tasks in insertion order and hands out ids from a counter that
// only moves forward, so an id is never reused for the lifetime of the list,
// not even after the task it named has been deleted or pruned.
package tasks

import (
	"fmt"
	"sort"
	"sync"
)

// Status is the state of a task.
type Status int

const (
	StatusNew Status = iota
	StatusWIP
	StatusDone
	StatusCancelled
	// StatusDeleted is a removal intent. It is never stored on a task.
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusWIP:
		return "wip"
	case StatusDone:
		return "done"
	case StatusCancelled:
		return "cancelled"
	case StatusDeleted:
		return "deleted"
	}
	return "unknown"
}

// ParseStatus maps a name produced by String back to a stored status.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "new":
		return StatusNew, nil
	case "wip":
		return StatusWIP, nil
	case "done":
		return StatusDone, nil
	case "cancelled":
		return StatusCancelled, nil
	}
	return StatusNew, fmt.Errorf("unknown task status %q", name)
}

// Terminal reports whether tasks in this status are removed on prune.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// Task is a single entry in a List.
type Task struct {
	ID          int
	Description string
	Status      Status
}

// List is one user's ordered task list.
type List struct {
	mu     sync.Mutex
	lastID int
	order  []int
	byID   map[int]*Task
}

// NewList creates an empty list. The first task added gets id 1.
func NewList() *List {
	return &List{byID: make(map[int]*Task)}
}

// Add appends a NEW task and returns its id.
func (l *List) Add(description string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	id := l.lastID
	l.byID[id] = &Task{ID: id, Description: description, Status: StatusNew}
	l.order = append(l.order, id)
	return id
}

// SetStatus changes the status of every listed id that exists and returns the
// ids that were changed, in argument order. Unknown ids are skipped.
// StatusDeleted is not a stored status; use Delete.
func (l *List) SetStatus(status Status, ids ...int) []int {
	if status == StatusDeleted {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var changed []int
	for _, id := range ids {
		task, ok := l.byID[id]
		if !ok {
			continue
		}
		task.Status = status
		changed = append(changed, id)
	}
	return changed
}

// Delete removes every listed id that exists and returns the removed ids.
// Deleting an id that is not present is a no-op.
func (l *List) Delete(ids ...int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed []int
	for _, id := range ids {
		if _, ok := l.byID[id]; !ok {
			continue
		}
		delete(l.byID, id)
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		l.compact()
	}
	return removed
}

// Prune removes DONE and CANCELLED tasks. NEW and WIP tasks are kept with
// their ids, descriptions and order unchanged.
func (l *List) Prune() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed []int
	for _, id := range l.order {
		if l.byID[id].Status.Terminal() {
			delete(l.byID, id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		l.compact()
	}
	return removed
}

// compact drops ids from order that are no longer present. Caller holds mu.
func (l *List) compact() {
	kept := l.order[:0]
	for _, id := range l.order {
		if _, ok := l.byID[id]; ok {
			kept = append(kept, id)
		}
	}
	l.order = kept
}

// Get returns a copy of the task with the given id.
func (l *List) Get(id int) (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	task, ok := l.byID[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Tasks returns a snapshot of all tasks in insertion order.
func (l *List) Tasks() []Task {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Task, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.byID[id])
	}
	return out
}

// Snapshot returns the id counter and the tasks in order, read under one lock.
func (l *List) Snapshot() (lastID int, tasks []Task) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks = make([]Task, 0, len(l.order))
	for _, id := range l.order {
		tasks = append(tasks, *l.byID[id])
	}
	return l.lastID, tasks
}

// RestoreList rebuilds a list from a snapshot. The counter is raised to the
// highest task id if needed so restored ids are never handed out again.
func RestoreList(lastID int, tasks []Task) *List {
	l := NewList()
	l.lastID = lastID
	for _, t := range tasks {
		if _, dup := l.byID[t.ID]; dup || t.ID <= 0 || t.Status == StatusDeleted {
			continue
		}
		task := t
		l.byID[t.ID] = &task
		l.order = append(l.order, t.ID)
		if t.ID > l.lastID {
			l.lastID = t.ID
		}
	}
	return l
}

// Len returns the number of tasks in the list.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Manager owns the task lists of all users.
type Manager struct {
	mu    sync.Mutex
	lists map[string]*List
}

// NewManager creates a Manager with no lists.
func NewManager() *Manager {
	return &Manager{lists: make(map[string]*List)}
}

// List returns the list owned by owner, creating it on first use.
func (m *Manager) List(owner string) *List {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, ok := m.lists[owner]
	if !ok {
		list = NewList()
		m.lists[owner] = list
	}
	return list
}

// Owners returns the owners that have a list, sorted.
func (m *Manager) Owners() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	owners := make([]string, 0, len(m.lists))
	for owner := range m.lists {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// Restore installs list as owner's list, replacing any existing one.
func (m *Manager) Restore(owner string, list *List) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[owner] = list
}
