package snapshot

import (
	"time"

	"github.com/google/uuid"

	"mbobook/domain/market"
)

// Snapshot is one exported document.
type Snapshot struct {
	ID      uuid.UUID    `json:"id"`
	Created time.Time    `json:"created"`
	Events  uint64       `json:"events"`
	State   market.State `json:"state"`
}

func New(events uint64, state market.State) Snapshot {
	return Snapshot{
		ID:      uuid.New(),
		Created: time.Now().UTC(),
		Events:  events,
		State:   state,
	}
}
