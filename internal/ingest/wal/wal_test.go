package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendThenReplayRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.iwal")
	w, err := OpenWriter(path)
	require.NoError(t, err)

	records := []Record{
		{IndexName: "default", DocID: "a", Text: map[string]string{"title": "hello"}},
		{IndexName: "default", DocID: "b", Numeric: map[string]float64{"price": 12.5}},
	}
	for _, r := range records {
		require.NoError(t, w.Append(r))
	}
	require.NoError(t, w.Close())

	var replayed []Record
	require.NoError(t, Replay(path, func(r Record) error {
		replayed = append(replayed, r)
		return nil
	}))
	assert.Equal(t, records, replayed)
}

func TestReplayMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.iwal")
	err := Replay(path, func(Record) error { return nil })
	assert.NoError(t, err)
}

func TestReplayToleratesTruncatedFinalRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.iwal")
	w, err := OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{IndexName: "default", DocID: "whole"}))
	sizeAfterFirst, err := w.file.Seek(0, 1)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{IndexName: "default", DocID: "truncated-one", Text: map[string]string{"title": "this record gets cut off mid-payload"}}))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	// Simulate a crash mid-append: truncate partway into the second
	// record's frame rather than at a clean record boundary.
	require.NoError(t, f.Truncate(sizeAfterFirst+4))
	require.NoError(t, f.Close())

	var replayed []Record
	err = Replay(path, func(r Record) error {
		replayed = append(replayed, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, replayed, 1)
	assert.Equal(t, "whole", replayed[0].DocID)
}

func TestOpenWriterAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.iwal")
	w1, err := OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w1.Append(Record{IndexName: "default", DocID: "first"}))
	require.NoError(t, w1.Close())

	w2, err := OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w2.Append(Record{IndexName: "default", DocID: "second"}))
	require.NoError(t, w2.Close())

	var replayed []Record
	require.NoError(t, Replay(path, func(r Record) error {
		replayed = append(replayed, r)
		return nil
	}))
	require.Len(t, replayed, 2)
	assert.Equal(t, "first", replayed[0].DocID)
	assert.Equal(t, "second", replayed[1].DocID)
}
