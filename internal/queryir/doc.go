// Package queryir is the query intermediate representation of the row
// store.
//
// Handlers describe what rows they need as a small tree of Query and
// Predicate nodes; backends compile the tree to their own language. The
// SQLite backend lives in package querysql.
//
//	[REST filters] → [Query IR] → [SQL]
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	case Count:
//	}
//
// Rules every backend must honor:
//   - Contains matches case-insensitively on the display text of a cell,
//     exactly like the in-memory grid filter
//   - results are ordered by position, then id, byte-wise
//   - values are never interpolated into query text
package queryir
