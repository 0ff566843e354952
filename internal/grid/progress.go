package grid

import (
	"sync"
)

// ProgressState is a point-in-time view of a long-running operation.
type ProgressState struct {
	Label   string `json:"label"`
	Total   int    `json:"total"`
	Done    int    `json:"done"`
	Failed  int    `json:"failed"`
	Running bool   `json:"running"`
}

// Fraction returns Done+Failed over Total, or 0 when Total is 0.
func (p ProgressState) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done+p.Failed) / float64(p.Total)
}

// Progress is an observable progress value shared by the operations of one
// table (bulk delete, drop persistence, import). Subscribers are called
// synchronously, in subscription order, after every update.
//
// Thread-safety: Progress is safe for concurrent use. Subscribers must not
// call back into the same Progress.
type Progress struct {
	mu     sync.Mutex
	state  ProgressState
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(ProgressState)
}

// NewProgress creates an idle progress value.
func NewProgress() *Progress {
	return &Progress{}
}

// Subscribe registers fn and returns a function that unregisters it.
// Calling the returned function more than once is harmless.
func (p *Progress) Subscribe(fn func(ProgressState)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscriber{id: id, fn: fn})
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

// Start begins a new operation, discarding any previous state.
func (p *Progress) Start(label string, total int) {
	p.update(func(s *ProgressState) {
		*s = ProgressState{Label: label, Total: total, Running: true}
	})
}

// Advance records one finished unit of work. A non-nil err counts it as
// failed.
func (p *Progress) Advance(err error) {
	p.update(func(s *ProgressState) {
		if err != nil {
			s.Failed++
		} else {
			s.Done++
		}
	})
}

// Finish marks the operation as complete. Counters are kept for display.
func (p *Progress) Finish() {
	p.update(func(s *ProgressState) {
		s.Running = false
	})
}

// Reset returns to the idle zero state.
func (p *Progress) Reset() {
	p.update(func(s *ProgressState) {
		*s = ProgressState{}
	})
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() ProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Progress) update(fn func(*ProgressState)) {
	p.mu.Lock()
	fn(&p.state)
	state := p.state
	subs := append([]subscriber(nil), p.subs...)
	p.mu.Unlock()

	for _, s := range subs {
		s.fn(state)
	}
}
