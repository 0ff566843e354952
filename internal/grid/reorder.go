package grid

import "fmt"

// MoveInOrder moves the record shown at view index drag to the base-order
// slot of the record shown at view index hover.
//
// view lists record ids in view order and base in canonical order. The
// move always acts on base, so a filtered or sorted view never scrambles
// the order of records the user cannot see. The result is a new slice;
// base is not modified.
func MoveInOrder(base, view []string, drag, hover int) ([]string, error) {
	if drag < 0 || drag >= len(view) {
		return nil, newNotFoundError(fmt.Sprintf("drag index %d out of range [0,%d)", drag, len(view)))
	}
	if hover < 0 || hover >= len(view) {
		return nil, newNotFoundError(fmt.Sprintf("hover index %d out of range [0,%d)", hover, len(view)))
	}

	from, to := indexOf(base, view[drag]), indexOf(base, view[hover])
	if from < 0 {
		return nil, newNotFoundError(fmt.Sprintf("record %q not in base order", view[drag]))
	}
	if to < 0 {
		return nil, newNotFoundError(fmt.Sprintf("record %q not in base order", view[hover]))
	}

	out := append([]string(nil), base...)
	if from == to {
		return out, nil
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]string{moved}, out[to:]...)...)
	return out, nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Reorderer tracks one drag gesture. MoveRow is called on every hover
// event, so repeating the last applied (drag, hover) pair must not move
// the row again.
type Reorderer struct {
	last     [2]int
	hasLast  bool
	dragging bool
}

// Move applies a hover event to base. moved is false when the event was a
// no-op: a repeat of the last pair or a move onto itself.
func (r *Reorderer) Move(base, view []string, drag, hover int) (order []string, moved bool, err error) {
	pair := [2]int{drag, hover}
	if r.hasLast && r.last == pair {
		return base, false, nil
	}
	order, err = MoveInOrder(base, view, drag, hover)
	if err != nil {
		return nil, false, err
	}
	r.last, r.hasLast, r.dragging = pair, true, true
	return order, drag != hover, nil
}

// Dragging reports whether a move happened since the last Drop.
func (r *Reorderer) Dragging() bool {
	return r.dragging
}

// Reset forgets the last applied pair. View indices mean different records
// once the filters or sort change, so the next pair must be applied even if
// it repeats the last one. The gesture itself stays open.
func (r *Reorderer) Reset() {
	r.hasLast = false
}

// Drop ends the gesture.
func (r *Reorderer) Drop() {
	r.hasLast = false
	r.dragging = false
}
