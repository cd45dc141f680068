// Package command implements the manual-override channel between the
// dashboard and the trading controller: a single slot holding at most one
// pending forced command, consumed exactly once per cycle.
package command

import (
	"strings"
	"sync"
)

// Forced is a manual override for one trading cycle.
type Forced string

const (
	None         Forced = "NONE"
	ForceBuy     Forced = "FORCE_BUY"
	ForceSell    Forced = "FORCE_SELL"
	ForceConsult Forced = "FORCE_IA_CONSULT"
	Clear        Forced = "CLEAR"
)

// Parse maps free-form input to a Forced command. The CLEAR_FORCED_ACTION
// alias is accepted for compatibility with the old dashboard.
func Parse(s string) (Forced, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ForceBuy):
		return ForceBuy, true
	case string(ForceSell):
		return ForceSell, true
	case string(ForceConsult):
		return ForceConsult, true
	case string(Clear), "CLEAR_FORCED_ACTION":
		return Clear, true
	default:
		return None, false
	}
}

// Slot is a one-shot, last-write-wins mailbox. Take is atomic, so a command
// can never be observed by two cycles, and a write racing a Take is either
// fully seen or left for the next cycle.
type Slot struct {
	mu      sync.Mutex
	pending Forced
}

func NewSlot() *Slot {
	return &Slot{pending: None}
}

// Put stores a command, replacing any pending one.
func (s *Slot) Put(cmd Forced) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = cmd
}

// Take returns the pending command and clears the slot in one step.
// Returns None when nothing is pending.
func (s *Slot) Take() Forced {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd := s.pending
	s.pending = None
	return cmd
}

// Peek returns the pending command without consuming it; used by the
// dashboard to show what the next cycle will pick up.
func (s *Slot) Peek() Forced {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
