// Package orderbook reconstructs a single venue's limit order book from
// market-by-order records. Each side keeps a red-black tree of price
// levels and every level is an intrusive FIFO of resting orders, so price
// and time priority are both explicit. An order-id index points straight at
// the resting nodes.
//
// A Book is single-writer and performs no locking.
package orderbook
