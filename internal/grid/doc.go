// Package grid implements the headless generic record table.
//
// A Table owns an in-memory Store of records in canonical base order. A view
// is derived on demand by applying the active filters and then the active
// sort; neither mutates the store. Interaction state (the edited cell, the
// drag gesture and the selection set) lives next to the store, and every
// mutation that must reach the server goes through the Syncer, the only
// component that talks to a Backend.
//
// # Optimistic updates
//
// Cell edits are applied to the store before the backend call is made. Each
// edit is tagged with a sequence number drawn from a per-cell Sequencer; a
// response is only allowed to touch the store (reverting on failure) when
// its sequence number is still the latest issued for that cell. Responses
// that lost the race are discarded and counted.
//
// # Concurrency
//
// Table is safe for concurrent use. Backend calls are made without holding
// the table lock, so a slow server never blocks reads of the view.
package grid
