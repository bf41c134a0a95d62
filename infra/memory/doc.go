// Package memory holds allocation helpers for hot paths that create and
// drop many small objects, such as resting orders in a book.
package memory
