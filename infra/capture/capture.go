package capture

import (
	"github.com/pkg/errors"

	"mbobook/domain/mbo"
	"mbobook/infra/codec"
	"mbobook/infra/sequence"
	entrywal "mbobook/infra/wal/entry"
)

// Recorder appends metadata and events to a capture journal.
// It is single-writer.
type Recorder struct {
	wal *entrywal.WAL
	seq *sequence.Sequencer
	buf []byte
}

// Create opens (or continues) the capture in cfg.Dir.
func Create(cfg entrywal.Config) (*Recorder, error) {
	w, err := entrywal.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		wal: w,
		seq: sequence.New(w.LastSeq()),
	}, nil
}

func (r *Recorder) WriteMetadata(md codec.Metadata) error {
	rec := entrywal.NewRecord(entrywal.RecordMetadata, r.seq.Next(), codec.MarshalMetadata(md))
	return r.wal.Append(rec)
}

func (r *Recorder) WriteEvent(ev mbo.Event) error {
	r.buf = codec.AppendEvent(r.buf[:0], ev)
	return r.wal.Append(entrywal.NewRecord(entrywal.RecordEvent, r.seq.Next(), r.buf))
}

// LastSeq returns the sequence of the last record written.
func (r *Recorder) LastSeq() uint64 { return r.seq.Current() }

func (r *Recorder) Close() error {
	return r.wal.Close()
}

// Handler receives the decoded content of a capture. Either callback may be nil.
type Handler struct {
	Metadata func(codec.Metadata) error
	Event    func(mbo.Event) error
}

// Read replays a capture directory in order.
func Read(dir string, h Handler) error {
	_, err := entrywal.Replay(dir, func(rec *entrywal.Record) error {
		switch rec.Type {
		case entrywal.RecordMetadata:
			md, err := codec.UnmarshalMetadata(rec.Data)
			if err != nil {
				return errors.Wrapf(err, "capture record %d", rec.Seq)
			}
			if h.Metadata != nil {
				return h.Metadata(md)
			}
		case entrywal.RecordEvent:
			ev, err := codec.UnmarshalEvent(rec.Data)
			if err != nil {
				return errors.Wrapf(err, "capture record %d", rec.Seq)
			}
			if h.Event != nil {
				return h.Event(ev)
			}
		default:
			return errors.Errorf("capture record %d: unknown type %d", rec.Seq, rec.Type)
		}
		return nil
	})
	return err
}

// Load reads a whole capture into memory. Later metadata records replace
// earlier ones.
func Load(dir string) (codec.Metadata, []mbo.Event, error) {
	var md codec.Metadata
	var events []mbo.Event
	err := Read(dir, Handler{
		Metadata: func(m codec.Metadata) error {
			md = m
			return nil
		},
		Event: func(ev mbo.Event) error {
			events = append(events, ev)
			return nil
		},
	})
	return md, events, err
}
