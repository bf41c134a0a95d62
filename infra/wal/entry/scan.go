package entry

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

// recoverSegment validates the newest segment before it is appended to and
// returns the highest sequence in it. A record cut short by a crash is
// truncated away; a checksum failure or an oversized length is reported, not
// repaired.
func recoverSegment(path string) (uint64, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "open segment %s", path)
	}
	defer f.Close()

	var last uint64
	var valid int64
	r := bufio.NewReader(f)
	for {
		rec, err := readRecord(r)
		switch {
		case err == nil:
			last = max(last, rec.Seq)
			valid += int64(headerSize + len(rec.Data) + crcSize)
			continue
		case err == io.EOF:
			return last, nil
		case err == io.ErrUnexpectedEOF:
			if terr := f.Truncate(valid); terr != nil {
				return last, errors.Wrapf(terr, "truncate torn tail of %s", path)
			}
			return last, nil
		default:
			return last, errors.Wrapf(err, "scan %s", path)
		}
	}
}

// segmentLastSeq reads a sealed segment and returns its highest sequence.
func segmentLastSeq(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open segment %s", path)
	}
	defer f.Close()

	var last uint64
	r := bufio.NewReader(f)
	for {
		rec, err := readRecord(r)
		if err != nil {
			if err == io.EOF {
				return last, nil
			}
			return last, errors.Wrapf(err, "scan %s", path)
		}
		last = max(last, rec.Seq)
	}
}
