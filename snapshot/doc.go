// Package snapshot writes point-in-time JSON exports of a market. Exports
// are for inspection and downstream tooling; nothing loads them back into
// a book.
package snapshot
