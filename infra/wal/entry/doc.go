// Package entry is the on-disk capture journal: CRC-framed records in
// size- or time-rotated segment files, replayed in sequence order.
package entry
