package grid

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/pulsegrid/internal/cell"
)

// Clock is a monotonic logical clock. Every call to Next returns a value
// strictly greater than all previous ones.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// CellKey identifies one cell.
type CellKey struct {
	RecordID string
	ColumnID string
}

// Sequencer tags mutations with sequence numbers and remembers the latest
// one issued per cell. A response carrying an older number is stale.
//
// For every cell with a write in flight it also keeps the confirmed
// baseline: the value the backend is known to hold. It starts as the value
// the cell had before the first unsettled write and moves forward on each
// successful write.
type Sequencer struct {
	clock     *Clock
	mu        sync.Mutex
	latest    map[CellKey]int64
	baselines map[CellKey]*baseline
}

type baseline struct {
	value    cell.Value
	inflight int
}

// NewSequencer creates a sequencer backed by its own clock.
func NewSequencer() *Sequencer {
	return &Sequencer{
		clock:     NewClock(),
		latest:    make(map[CellKey]int64),
		baselines: make(map[CellKey]*baseline),
	}
}

// IssueFrom is Issue for a write that replaces base. base becomes the
// cell's baseline unless another write is already in flight, in which case
// the existing baseline is kept. Every IssueFrom must be paired with a
// Release.
func (s *Sequencer) IssueFrom(key CellKey, base cell.Value) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.baselines[key]
	if !ok {
		b = &baseline{value: base}
		s.baselines[key] = b
	}
	b.inflight++
	seq := s.clock.Next()
	s.latest[key] = seq
	return seq
}

// Confirm records v as held by the backend.
func (s *Sequencer) Confirm(key CellKey, v cell.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.baselines[key]; ok {
		b.value = v
	}
}

// Baseline returns the confirmed value of a cell with a write in flight.
func (s *Sequencer) Baseline(key CellKey) (cell.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.baselines[key]
	if !ok {
		return nil, false
	}
	return b.value, true
}

// Release ends one write issued with IssueFrom. The baseline is dropped
// once no write of the cell is in flight.
func (s *Sequencer) Release(key CellKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.baselines[key]
	if !ok {
		return
	}
	if b.inflight--; b.inflight <= 0 {
		delete(s.baselines, key)
	}
}

// Issue returns a new sequence number for key and records it as the latest.
func (s *Sequencer) Issue(key CellKey) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.clock.Next()
	s.latest[key] = seq
	return seq
}

// IsLatest reports whether seq is still the newest number issued for key.
func (s *Sequencer) IsLatest(key CellKey, seq int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[key] == seq
}

// Settle forgets key if seq is still the latest, and reports whether it was.
// Settling keeps the map from growing with every cell ever edited.
func (s *Sequencer) Settle(key CellKey, seq int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[key] != seq {
		return false
	}
	delete(s.latest, key)
	return true
}

// Pending returns the number of cells with an unsettled mutation.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.latest)
}
