package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/looplab/fsm"

	"github.com/roach88/pulsegrid/internal/cell"
)

// Editor states.
const (
	EditorIdle    = "idle"
	EditorEditing = "editing"
)

const (
	eventBegin   = "begin"
	eventCommit  = "commit"
	eventDiscard = "discard"
)

// StopReason is how the user left a cell.
type StopReason string

const (
	StopBlur   StopReason = "blur"
	StopEnter  StopReason = "enter"
	StopEscape StopReason = "escape"
)

// ParseStopReason converts a string to a StopReason.
func ParseStopReason(s string) (StopReason, error) {
	switch r := StopReason(s); r {
	case StopBlur, StopEnter, StopEscape:
		return r, nil
	default:
		return "", newValidationError(fmt.Sprintf("unknown stop reason %q", s))
	}
}

// EditState is the cell currently open for editing.
type EditState struct {
	RecordID string
	ColumnID string
	Original cell.Value
	Draft    cell.Value
}

// Changed reports whether the draft differs from the original value.
func (s EditState) Changed() bool {
	return !cell.Equal(s.Original, s.Draft)
}

// EditOutcome describes how an edit ended.
type EditOutcome struct {
	Cell EditState
	// Persist is true when the draft must be written: the edit was
	// committed and the value changed.
	Persist bool
}

// Editor is the editing state machine. At most one cell is open at a time.
//
//	idle --begin--> editing --commit|discard--> idle
//
// Editor holds no record data beyond the open cell; applying and persisting
// a committed draft is the caller's job. Not safe for concurrent use; Table
// guards it.
type Editor struct {
	machine *fsm.FSM
	current *EditState
	logger  *slog.Logger
}

// NewEditor creates an idle editor.
func NewEditor(logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Editor{logger: logger}
	e.machine = fsm.NewFSM(
		EditorIdle,
		fsm.Events{
			{Name: eventBegin, Src: []string{EditorIdle}, Dst: EditorEditing},
			{Name: eventCommit, Src: []string{EditorEditing}, Dst: EditorIdle},
			{Name: eventDiscard, Src: []string{EditorEditing}, Dst: EditorIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, ev *fsm.Event) {
				e.logger.Debug("editor transition",
					"event", ev.Event,
					"from", ev.Src,
					"to", ev.Dst,
				)
			},
		},
	)
	return e
}

// State returns EditorIdle or EditorEditing.
func (e *Editor) State() string {
	return e.machine.Current()
}

// Current returns the open cell, if any.
func (e *Editor) Current() (EditState, bool) {
	if e.current == nil {
		return EditState{}, false
	}
	return *e.current, true
}

// Begin opens a cell. The draft starts as a copy of the original value.
// Begin fails while another cell is open; stop it first.
func (e *Editor) Begin(ctx context.Context, recordID, columnID string, original cell.Value) error {
	if err := e.machine.Event(ctx, eventBegin); err != nil {
		return e.transitionError(err)
	}
	e.current = &EditState{
		RecordID: recordID,
		ColumnID: columnID,
		Original: cell.Clone(original),
		Draft:    cell.Clone(original),
	}
	return nil
}

// SetDraft replaces the draft of the open cell.
func (e *Editor) SetDraft(v cell.Value) error {
	if e.current == nil {
		return &GridError{Code: ErrCodeNotEditing, Message: "no cell is being edited"}
	}
	e.current.Draft = cell.Clone(v)
	return nil
}

// Stop closes the open cell. Blur and Enter commit, Escape discards.
func (e *Editor) Stop(ctx context.Context, reason StopReason) (EditOutcome, error) {
	if _, err := ParseStopReason(string(reason)); err != nil {
		return EditOutcome{}, err
	}
	event := eventCommit
	if reason == StopEscape {
		event = eventDiscard
	}
	if err := e.machine.Event(ctx, event); err != nil {
		return EditOutcome{}, e.transitionError(err)
	}

	state := *e.current
	e.current = nil
	return EditOutcome{
		Cell:    state,
		Persist: event == eventCommit && state.Changed(),
	}, nil
}

func (e *Editor) transitionError(err error) error {
	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		if e.machine.Current() == EditorIdle {
			return &GridError{Code: ErrCodeNotEditing, Message: "no cell is being edited", Err: err}
		}
		cur := e.current
		return &GridError{
			Code:     ErrCodeValidation,
			Message:  "a cell is already being edited",
			RecordID: cur.RecordID,
			ColumnID: cur.ColumnID,
			Err:      err,
		}
	}
	return fmt.Errorf("editor transition: %w", err)
}
