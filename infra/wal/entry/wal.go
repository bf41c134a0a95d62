package entry

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/pkg/errors"
)

const (
	headerSize = 1 + 8 + 8 + 4
	crcSize    = 4

	maxRecordSize = 1 << 20
)

type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
}

// WAL is an append-only journal split into numbered segment files.
// It is single-writer.
type WAL struct {
	dir        string
	segSize    int64
	segDur     time.Duration
	current    *segment
	segIndex   int
	lastRotate time.Time
	lastSeq    uint64
	buf        []byte
}

// Open prepares dir for appending. An existing journal is continued in its
// newest segment and LastSeq reports the highest sequence already written.
func Open(cfg Config) (*WAL, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create journal dir")
	}

	files, err := listSegments(cfg.Dir)
	if err != nil {
		return nil, err
	}

	w := &WAL{
		dir:        cfg.Dir,
		segSize:    cfg.SegmentSize,
		segDur:     cfg.SegmentDuration,
		lastRotate: time.Now(),
	}

	if n := len(files); n > 0 {
		last := files[n-1]
		if w.segIndex, err = segmentIndex(last); err != nil {
			return nil, errors.Wrapf(err, "parse segment name %s", last)
		}
		if w.lastSeq, err = recoverSegment(last); err != nil {
			return nil, errors.Wrapf(err, "scan segment %s", last)
		}
		// A crash right after rotation can leave the newest segment empty.
		for i := n - 2; i >= 0 && w.lastSeq == 0; i-- {
			if w.lastSeq, err = segmentLastSeq(files[i]); err != nil {
				return nil, err
			}
		}
	}

	if w.current, err = openSegment(cfg.Dir, w.segIndex); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *WAL) LastSeq() uint64 { return w.lastSeq }

func (w *WAL) Append(r *Record) error {
	if r.Seq <= w.lastSeq {
		return errors.Errorf("non-monotonic seq %d after %d", r.Seq, w.lastSeq)
	}
	if len(r.Data) > maxRecordSize {
		return errors.Errorf("record of %d bytes exceeds %d", len(r.Data), maxRecordSize)
	}
	if w.rotateDue() {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	payloadLen := uint32(len(r.Data))

	// Frame:
	// [type:1][seq:8][time:8][len:4][payload][crc:4]
	size := headerSize + int(payloadLen) + crcSize
	if cap(w.buf) < size {
		w.buf = make([]byte, size)
	}
	buf := w.buf[:size]

	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[headerSize:], r.Data)

	crc := CRC32(buf[:headerSize+int(payloadLen)])
	binary.BigEndian.PutUint32(buf[headerSize+int(payloadLen):], crc)

	if err := w.current.append(buf); err != nil {
		return errors.Wrap(err, "append record")
	}
	w.lastSeq = r.Seq
	return nil
}

func (w *WAL) rotateDue() bool {
	if w.current.offset == 0 {
		return false
	}
	if w.segSize > 0 && w.current.offset >= w.segSize {
		return true
	}
	return w.segDur > 0 && time.Since(w.lastRotate) >= w.segDur
}

func (w *WAL) rotate() error {
	if err := w.current.close(); err != nil {
		return errors.Wrap(err, "close segment")
	}
	w.segIndex++

	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		return err
	}

	w.current = seg
	w.lastRotate = time.Now()
	return nil
}

func (w *WAL) Sync() error {
	return w.current.sync()
}

func (w *WAL) Close() error {
	if err := w.current.sync(); err != nil {
		_ = w.current.close()
		return err
	}
	return w.current.close()
}
