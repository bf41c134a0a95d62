package codec

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"

	"mbobook/domain/mbo"
)

const (
	streamVersion = 1
	maxFrameSize  = 1 << 20
)

var streamMagic = [4]byte{'M', 'B', 'O', 'S'}

// Frame:
// [len:4][payload][crc:4]
func writeFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc32.ChecksumIEEE(payload))
	_, err := w.Write(sum[:])
	return err
}

// readFrame returns io.EOF only when the stream ends cleanly between frames.
func readFrame(r io.Reader, buf []byte) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameSize {
		return nil, errors.Wrapf(ErrMalformed, "frame of %d bytes", n)
	}

	if cap(buf) < int(n)+4 {
		buf = make([]byte, int(n)+4)
	}
	buf = buf[:int(n)+4]
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	payload := buf[:n]
	if crc32.ChecksumIEEE(payload) != binary.BigEndian.Uint32(buf[n:]) {
		return nil, errors.Wrap(ErrMalformed, "crc mismatch")
	}
	return payload, nil
}

// Writer encodes a metadata header followed by events.
type Writer struct {
	w   *bufio.Writer
	buf []byte
}

// NewWriter writes the stream header and metadata to w.
func NewWriter(w io.Writer, md Metadata) (*Writer, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(streamMagic[:]); err != nil {
		return nil, errors.Wrap(err, "write stream magic")
	}
	if err := bw.WriteByte(streamVersion); err != nil {
		return nil, errors.Wrap(err, "write stream version")
	}
	if err := writeFrame(bw, MarshalMetadata(md)); err != nil {
		return nil, errors.Wrap(err, "write metadata")
	}
	return &Writer{w: bw}, nil
}

func (w *Writer) Write(ev mbo.Event) error {
	w.buf = AppendEvent(w.buf[:0], ev)
	return writeFrame(w.w, w.buf)
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader decodes a stream produced by Writer.
type Reader struct {
	r   *bufio.Reader
	md  Metadata
	buf []byte
}

// NewReader consumes the stream header and metadata from r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 64<<10)

	var hdr [5]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "read stream header")
	}
	if [4]byte(hdr[:4]) != streamMagic {
		return nil, errors.Wrap(ErrMalformed, "bad stream magic")
	}
	if hdr[4] != streamVersion {
		return nil, errors.Wrapf(ErrMalformed, "unsupported stream version %d", hdr[4])
	}

	payload, err := readFrame(br, nil)
	if err != nil {
		return nil, errors.Wrap(err, "read metadata")
	}
	md, err := UnmarshalMetadata(payload)
	if err != nil {
		return nil, err
	}
	return &Reader{r: br, md: md}, nil
}

func (r *Reader) Metadata() Metadata { return r.md }

// Next returns the next event, or io.EOF at the end of the stream.
func (r *Reader) Next() (mbo.Event, error) {
	payload, err := readFrame(r.r, r.buf)
	if err != nil {
		return mbo.Event{}, err
	}
	r.buf = payload[:cap(payload)]
	return UnmarshalEvent(payload)
}
