package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressLifecycle(t *testing.T) {
	p := NewProgress()
	var updates []ProgressState
	unsubscribe := p.Subscribe(func(s ProgressState) { updates = append(updates, s) })

	p.Start("import", 3)
	p.Advance(nil)
	p.Advance(errors.New("bad row"))
	p.Advance(nil)
	p.Finish()

	snap := p.Snapshot()
	assert.Equal(t, ProgressState{Label: "import", Total: 3, Done: 2, Failed: 1, Running: false}, snap)
	assert.InDelta(t, 1.0, snap.Fraction(), 1e-9)
	assert.Len(t, updates, 5)
	assert.True(t, updates[0].Running)

	unsubscribe()
	unsubscribe()
	p.Reset()
	assert.Len(t, updates, 5, "no updates after unsubscribe")
	assert.Equal(t, ProgressState{}, p.Snapshot())
	assert.Equal(t, 0.0, p.Snapshot().Fraction())
}

func TestProgressMultipleSubscribers(t *testing.T) {
	p := NewProgress()
	var a, b int
	unsubA := p.Subscribe(func(ProgressState) { a++ })
	p.Subscribe(func(ProgressState) { b++ })

	p.Start("delete", 1)
	unsubA()
	p.Advance(nil)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}
