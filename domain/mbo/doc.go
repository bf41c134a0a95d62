// Package mbo defines the market-by-order record consumed by the order
// book: sides, actions, record flags and fixed-point prices.
package mbo
