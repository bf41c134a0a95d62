package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing journal sequence numbers.
type Sequencer struct {
	last atomic.Uint64
}

// New returns a sequencer whose first Next is start+1. Pass the last
// sequence of a reopened journal to continue it.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
