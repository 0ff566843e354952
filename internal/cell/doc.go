// Package cell defines the constrained value types stored in record cells.
//
// A cell holds one of:
//   - Empty: no value (JSON null or a missing key)
//   - Text:  a string
//   - Int:   a 64-bit integer
//   - Bool:  a checkbox value
//   - Tags:  an ordered tag list
//
// Value is a sealed interface; only the types in this package implement it.
// Floats are rejected at every decoding boundary so that comparisons and
// snapshots stay deterministic.
//
// # Matching and ordering
//
// Contains implements the filter rule shared by the client engine and the
// reference backend: a cell matches a needle when the needle is a substring of
// the cell's display text after NFC normalisation and Unicode case folding.
//
// Compare implements the sort rule. Values of different kinds order as
// Empty < Bool < Int < Text < Tags. A Tags value orders by its first tag.
package cell
