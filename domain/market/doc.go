// Package market keeps one order book per (instrument, venue) and
// consolidates quotes across venues.
package market
