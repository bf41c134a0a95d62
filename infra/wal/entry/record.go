package entry

import "time"

type RecordType uint8

const (
	RecordMetadata RecordType = iota + 1
	RecordEvent
)

func (t RecordType) String() string {
	switch t {
	case RecordMetadata:
		return "metadata"
	case RecordEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Record is one journal entry. Data is opaque to the journal.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
