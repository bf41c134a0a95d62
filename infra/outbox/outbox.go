package outbox

import (
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"mbobook/infra/sequence"
)

var (
	keyPrefix = []byte("quote/")
	keyUpper  = []byte("quote0") // '0' follows '/'
)

// Outbox is a durable queue of messages awaiting delivery to a broker.
// Records move NEW -> SENT -> ACKED and survive restarts.
type Outbox struct {
	db  *pebble.DB
	seq *sequence.Sequencer
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open outbox %s", dir)
	}
	last, err := lastSeq(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Outbox{db: db, seq: sequence.New(last)}, nil
}

func lastSeq(db *pebble.DB) (uint64, error) {
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyUpper})
	if err != nil {
		return 0, errors.Wrap(err, "outbox iterator")
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put queues a new message and returns its sequence.
func (o *Outbox) Put(key, payload []byte) (uint64, error) {
	seq := o.seq.Next()
	rec := Record{Seq: seq, State: StateNew, Key: key, Payload: payload}
	if err := o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync); err != nil {
		return 0, errors.Wrapf(err, "outbox put %d", seq)
	}
	return seq, nil
}

// Mark moves a record to state, counting an attempt.
func (o *Outbox) Mark(seq uint64, state State) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.LastAttempt = time.Now().UnixNano()
	if state == StateSent {
		rec.Retries++
	}
	return errors.Wrapf(o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync), "outbox mark %d", seq)
}

func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, errors.Wrapf(err, "outbox get %d", seq)
	}
	defer closer.Close()
	return decodeRecord(seq, val)
}

func (o *Outbox) Delete(seq uint64) error {
	return errors.Wrapf(o.db.Delete(keyFor(seq), pebble.Sync), "outbox delete %d", seq)
}

// Scan visits records in sequence order whose state is one of states.
// With no states every record is visited.
func (o *Outbox) Scan(fn func(Record) error, states ...State) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyUpper})
	if err != nil {
		return errors.Wrap(err, "outbox iterator")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		val := iter.Value()
		if len(val) == 0 || !wanted(State(val[0]), states) {
			continue
		}
		rec, err := decodeRecord(seq, val)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func wanted(s State, states []State) bool {
	if len(states) == 0 {
		return true
	}
	for _, w := range states {
		if s == w {
			return true
		}
	}
	return false
}

// Prune deletes every ACKED record and reports how many were removed.
func (o *Outbox) Prune() (int, error) {
	batch := o.db.NewBatch()
	defer batch.Close()

	n := 0
	err := o.Scan(func(r Record) error {
		n++
		return batch.Delete(keyFor(r.Seq), nil)
	}, StateAcked)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return n, errors.Wrap(batch.Commit(pebble.Sync), "outbox prune")
}

// keys sort by sequence: quote/<seq:8 big endian>
func keyFor(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), keyPrefix...), seq)
}

func parseKey(k []byte) (uint64, error) {
	if len(k) != len(keyPrefix)+8 {
		return 0, errors.Errorf("outbox: malformed key %q", k)
	}
	return binary.BigEndian.Uint64(k[len(keyPrefix):]), nil
}
