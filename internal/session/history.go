package session

import (
	"sync"
	"time"

	"relaybot/internal/providers"
)

type Turn struct {
	Role providers.Role
	Text string
	At   time.Time
}

// History is the per-user bounded conversation log. Once the bound is
// exceeded the oldest turns are evicted first.
type History struct {
	mu    sync.Mutex
	limit int
	turns map[int64][]Turn
}

func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit, turns: make(map[int64][]Turn)}
}

func (h *History) Append(userID int64, turn Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq := append(h.turns[userID], turn)
	if excess := len(seq) - h.limit; excess > 0 {
		seq = append([]Turn(nil), seq[excess:]...)
	}
	h.turns[userID] = seq
}

// Snapshot returns a copy of the log at call time, so a concurrent append
// never mutates history already captured for an in-flight provider call.
func (h *History) Snapshot(userID int64) []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq := h.turns[userID]
	out := make([]Turn, len(seq))
	copy(out, seq)
	return out
}

func (h *History) Len(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns[userID])
}

func (h *History) Clear(userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.turns, userID)
}
