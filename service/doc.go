// Package service owns the market and is the only place events are
// applied. It records the feed, publishes consolidated quotes and exports
// state, and serves read queries under a lock.
package service
