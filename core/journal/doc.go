// Package journal keeps an audit trail of planning runs. Records are appended
// from the plan event bus to a rotating JSON lines file or a SQLite table.
package journal
