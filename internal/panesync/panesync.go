// Package panesync keeps the two panes of a diff view scrolled to
// corresponding content.
//
// A Sync receives every scroll event from both panes. A user scroll on one
// pane yields an Update telling the caller where to move the other pane.
// Moving that pane makes it emit a scroll event of its own; Sync recognizes
// that echo and swallows it so the panes do not drive each other in a loop.
package panesync

import (
	"math"
	"sync"

	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/richtext"
	"github.com/zjrosen/difflens/internal/scrollmap"
)

// DefaultTolerance is how close an incoming position must be to a pending
// programmatic move to count as its echo.
const DefaultTolerance = 1e-6

// Update is a programmatic move the caller must apply to one pane.
type Update struct {
	Side     richtext.Side
	Position float64 // Normalized position on Side
	Page     int     // Page under Position on Side
}

// Sync is the synchronized scrolling state of a pair of panes.
// It is safe for concurrent use.
type Sync struct {
	mu        sync.Mutex
	m         *scrollmap.ScrollMap
	pos       [2]float64
	echo      [2]float64
	hasEcho   [2]bool
	locked    bool
	tolerance float64
}

// New returns a locked Sync over m with both panes at the top.
func New(m *scrollmap.ScrollMap) *Sync {
	return &Sync{m: m, locked: true, tolerance: DefaultTolerance}
}

// Scroll records that the pane on side scrolled to pos and returns the move
// to apply to the other pane, if any.
func (s *Sync) Scroll(side richtext.Side, pos float64) (Update, bool) {
	pos = max(0, min(pos, 1))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasEcho[side] {
		s.hasEcho[side] = false
		if math.Abs(pos-s.echo[side]) <= s.tolerance {
			s.pos[side] = pos
			return Update{}, false
		}
		// The user moved this pane before our move landed; theirs wins.
		log.Debug(log.CatScrollMap, "Scroll echo superseded", "side", side, "expected", s.echo[side], "got", pos)
	}

	s.pos[side] = pos
	if !s.locked {
		return Update{}, false
	}
	return s.driveLocked(side)
}

// driveLocked moves the pane opposite from to the position mapped from it.
func (s *Sync) driveLocked(from richtext.Side) (Update, bool) {
	other := from.Other()
	target := scrollmap.MappedPosition(s.m, from, s.pos[from])
	if math.Abs(target-s.pos[other]) <= s.tolerance {
		return Update{}, false
	}

	s.pos[other] = target
	s.echo[other] = target
	s.hasEcho[other] = true
	return Update{
		Side:     other,
		Position: target,
		Page:     scrollmap.MappedPage(s.m, from, s.pos[from]),
	}, true
}

// SetMap swaps the scroll map, for example after the documents are
// re-diffed, and re-aligns the right pane to the left one.
func (s *Sync) SetMap(m *scrollmap.ScrollMap) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = m
	s.hasEcho = [2]bool{}
	if !s.locked {
		return Update{}, false
	}
	return s.driveLocked(richtext.Left)
}

// SetLocked turns synchronization on or off. Turning it on re-aligns the
// pane opposite from to it.
func (s *Sync) SetLocked(locked bool, from richtext.Side) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locked = locked
	s.hasEcho = [2]bool{}
	if !locked {
		return Update{}, false
	}
	return s.driveLocked(from)
}

// Locked reports whether synchronization is on.
func (s *Sync) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Position returns the last known position of the pane on side.
func (s *Sync) Position(side richtext.Side) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos[side]
}
