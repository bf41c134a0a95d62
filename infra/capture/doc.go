// Package capture stores MBO streams on disk as journal records so they can
// be replayed later by the streamer, the replay tool and the demo.
package capture
