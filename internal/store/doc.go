// Package store provides SQLite-backed durable storage for grid tables.
//
// Two tables hold everything:
//   - grid_tables: one row per grid table, the column definition stored as JSON
//   - grid_rows: one row per record, cell values stored as a JSON object
//
// Row queries are built as queryir trees and compiled by querysql, so the
// filter semantics match the in-memory grid: every column filter is a
// case-insensitive substring test, evaluated by the grid_contains SQL
// function registered on every connection.
//
// # Ordering
//
// All row queries end in ORDER BY position ASC, id COLLATE BINARY ASC.
// Positions can tie after a partially failed reorder; the id tiebreak
// keeps listings identical across calls.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a table deletes its rows
//
// Store implements grid.Backend, so a grid.Table can run directly on a
// local database as well as through the REST client.
package store
