package entry

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendN(t *testing.T, w *WAL, from, to uint64) {
	t.Helper()
	for seq := from; seq <= to; seq++ {
		require.NoError(t, w.Append(NewRecord(RecordEvent, seq, []byte(fmt.Sprintf("payload-%d", seq)))))
	}
}

func collect(t *testing.T, dir string) []*Record {
	t.Helper()
	var out []*Record
	_, err := Replay(dir, func(r *Record) error {
		out = append(out, r)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestAppendReplay(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 1 << 20})
	require.NoError(t, err)

	require.NoError(t, w.Append(NewRecord(RecordMetadata, 1, []byte("meta"))))
	appendN(t, w, 2, 10)
	require.NoError(t, w.Close())

	recs := collect(t, dir)
	require.Len(t, recs, 10)
	assert.Equal(t, RecordMetadata, recs[0].Type)
	assert.Equal(t, []byte("meta"), recs[0].Data)
	assert.Equal(t, RecordEvent, recs[9].Type)
	assert.Equal(t, uint64(10), recs[9].Seq)
	assert.Equal(t, []byte("payload-10"), recs[9].Data)
	assert.NotZero(t, recs[9].Time)
}

func TestRotationBySize(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 64})
	require.NoError(t, err)
	appendN(t, w, 1, 20)
	require.NoError(t, w.Close())

	files, err := listSegments(dir)
	require.NoError(t, err)
	assert.Greater(t, len(files), 5)

	recs := collect(t, dir)
	require.Len(t, recs, 20)
	for i, r := range recs {
		assert.Equal(t, uint64(i+1), r.Seq)
	}
}

func TestRotationByDuration(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentDuration: time.Nanosecond})
	require.NoError(t, err)
	appendN(t, w, 1, 3)
	require.NoError(t, w.Close())

	files, err := listSegments(dir)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestReopenContinuesJournal(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 128})
	require.NoError(t, err)
	appendN(t, w, 1, 12)
	require.NoError(t, w.Close())

	w, err = Open(Config{Dir: dir, SegmentSize: 128})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), w.LastSeq())

	err = w.Append(NewRecord(RecordEvent, 12, nil))
	assert.Error(t, err, "sequence must keep increasing across reopen")

	appendN(t, w, 13, 15)
	require.NoError(t, w.Close())

	lastSeq, err := Replay(dir, func(*Record) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, uint64(15), lastSeq)
}

func TestReplayDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 1 << 20})
	require.NoError(t, err)
	appendN(t, w, 1, 3)
	require.NoError(t, w.Close())

	path := segmentPath(dir, 0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[headerSize+2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Replay(dir, func(*Record) error { return nil })
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestReplayStopsOnHandlerError(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	appendN(t, w, 1, 5)
	require.NoError(t, w.Close())

	stop := errors.New("stop")
	seen := 0
	lastSeq, err := Replay(dir, func(r *Record) error {
		seen++
		if r.Seq == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, seen)
	assert.Equal(t, uint64(3), lastSeq)
}

func TestReplayEmptyDir(t *testing.T) {
	lastSeq, err := Replay(t.TempDir(), func(*Record) error {
		t.Fatal("no records expected")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, lastSeq)
}

func TestOpenTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	appendN(t, w, 1, 4)
	require.NoError(t, w.Close())

	path := segmentPath(dir, 0)
	st, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, st.Size()-3))

	w, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), w.LastSeq())
	appendN(t, w, 4, 5)
	require.NoError(t, w.Close())

	recs := collect(t, dir)
	require.Len(t, recs, 5)
	assert.Equal(t, "payload-4", string(recs[3].Data))
}

func TestOpenResumesPastEmptyNewestSegment(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	appendN(t, w, 1, 3)
	require.NoError(t, w.Close())

	// first record of a fresh segment cut short
	require.NoError(t, os.WriteFile(segmentPath(dir, 1), []byte{byte(RecordEvent), 0, 0}, 0o644))

	w, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), w.LastSeq())
	assert.Error(t, w.Append(NewRecord(RecordEvent, 1, []byte("stale"))))
	appendN(t, w, 4, 5)
	require.NoError(t, w.Close())

	recs := collect(t, dir)
	require.Len(t, recs, 5)
	for i, r := range recs {
		assert.Equal(t, uint64(i+1), r.Seq)
	}
}

func TestOpenRejectsOversizedLength(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	appendN(t, w, 1, 4)
	require.NoError(t, w.Close())

	path := segmentPath(dir, 0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[17] = 0x7f
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Open(Config{Dir: dir})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), st.Size())

	_, err = Replay(dir, func(*Record) error { return nil })
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestAppendRejectsOversizedRecord(t *testing.T) {
	w, err := Open(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Append(NewRecord(RecordEvent, 1, make([]byte, maxRecordSize+1))))
	assert.Equal(t, uint64(0), w.LastSeq())
}
