// Package harness runs grid scenarios: scripted user interactions against a
// table backed by an in-memory fake backend, with assertions on the
// resulting view and on the requests the backend received.
//
// # Scenario Format
//
//	name: drag_reorder
//	description: "Dragging the first row to the end renumbers positions"
//	schema: ../schemas/projects.cue   # relative to the scenario file
//	table: projects
//	rows:
//	  - {id: "1", position: 1, values: {name: A}}
//	failures:
//	  - {op: delete, record: "2", message: "server error"}
//	steps:
//	  - do: move
//	    args: {from: 0, to: 2}
//	  - do: drop
//	    expect:
//	      view: ["2", "3", "1"]
//	assertions:
//	  - type: positions
//	    positions: {"1": 3, "2": 1, "3": 2}
//
// # Steps
//
// Every step names a table operation in do and passes its inputs in args:
//
//   - add_filter {column, value}, remove_filter {index}, clear_filters
//   - toggle_sort {column}
//   - begin_edit {record, column}, set_draft {value}, stop_edit {reason}
//   - edit {record, column, value, reason}: the three above in one step
//   - move {from, to}, drop
//   - toggle_select {id}, clear_selection, delete_selected
//   - insert {values}, load
//
// A step's expect clause checks the error code it returned (empty means
// success) and the view ids after it ran.
//
// # Assertion Types
//
//   - view: the final view ids, in order
//   - selected: the final selection, in base order
//   - call_count: how many op requests the backend received
//   - positions: backend positions by row id
//   - row: a subset of one backend row's values
//
// # Deterministic Output
//
// Requests of one step may run concurrently, so the trace lists them per
// step sorted by operation and row id rather than by arrival. Row ids come
// from a sequential generator and position retries use a fixed short
// policy, so traces are byte-identical across runs for golden comparison.
package harness
