package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbobook/domain/market"
	"mbobook/domain/mbo"
)

func TestWriteThenRead(t *testing.T) {
	m := market.New()
	require.NoError(t, m.Apply(mbo.Event{
		InstrumentID: 3, VenueID: 1, OrderID: 11,
		Side: mbo.Bid, Action: mbo.Add, Price: 25 * mbo.PriceScale, Size: 4,
	}))

	path := filepath.Join(t.TempDir(), "exports", "market.json")
	w := &Writer{Path: path}

	first := New(1, m.Export(true))
	require.NoError(t, w.Write(first))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, uint64(1), got.Events)
	assert.Equal(t, "25.00", got.State["3"]["1"].Bids[0].PrettyPrice)
	assert.Equal(t, uint64(11), got.State["3"]["1"].Bids[0].Orders[0].OrderID)

	second := New(2, m.Export(false))
	require.NoError(t, w.Write(second))
	got, err = Read(path)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, got.State["3"]["1"].Bids[0].Orders)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
