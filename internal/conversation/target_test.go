package conversation

import (
	"testing"

	"github.com/beadhub/standupbot/internal/chat"
)

func publishTarget(name, id string) *PublishTarget {
	p := NewPublishTarget(name)
	p.Resolve([]chat.Channel{{ID: id, Name: name}})
	return p
}

func TestPublishTarget_Resolve(t *testing.T) {
	p := NewPublishTarget("#standup")
	if p.Name() != "standup" {
		t.Fatalf("Name = %q, want standup", p.Name())
	}
	if p.Channel() != "standup" {
		t.Errorf("unresolved Channel = %q, want the name", p.Channel())
	}

	if p.Resolve([]chat.Channel{{ID: "C1", Name: "general"}}) {
		t.Error("Resolve matched the wrong channel")
	}
	if !p.Resolve([]chat.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "standup"}}) {
		t.Fatal("Resolve did not match")
	}
	if p.Channel() != "C2" {
		t.Errorf("Channel = %q, want C2", p.Channel())
	}
}
