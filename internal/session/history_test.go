package session

import (
	"fmt"
	"testing"

	"relaybot/internal/providers"
)

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := NewHistory(4)
	for i := 0; i < 6; i++ {
		h.Append(7, Turn{Role: providers.RoleUser, Text: fmt.Sprintf("m%d", i)})
	}
	got := h.Snapshot(7)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Text != "m2" || got[3].Text != "m5" {
		t.Fatalf("unexpected window: %q .. %q", got[0].Text, got[3].Text)
	}
}

func TestHistorySnapshotIsDetached(t *testing.T) {
	h := NewHistory(10)
	h.Append(1, Turn{Role: providers.RoleUser, Text: "a"})
	snap := h.Snapshot(1)
	h.Append(1, Turn{Role: providers.RoleAssistant, Text: "b"})
	if len(snap) != 1 || snap[0].Text != "a" {
		t.Fatalf("snapshot mutated by later append: %+v", snap)
	}
}

func TestHistoryClearLeavesOtherUsers(t *testing.T) {
	h := NewHistory(10)
	h.Append(1, Turn{Text: "a"})
	h.Append(2, Turn{Text: "b"})
	h.Clear(1)
	if h.Len(1) != 0 {
		t.Fatalf("user 1 len = %d, want 0", h.Len(1))
	}
	if h.Len(2) != 1 {
		t.Fatalf("user 2 len = %d, want 1", h.Len(2))
	}
}
