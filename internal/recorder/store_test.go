package recorder

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wits0/internal/wits0"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "wits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func frame(pairs ...string) wits0.LogicalRecord {
	var lr wits0.LogicalRecord
	for i := 0; i+1 < len(pairs); i += 2 {
		id, _ := wits0.ParseIdentifier(pairs[i])
		lr.DataRecords = append(lr.DataRecords, wits0.DataRecord{Identifier: id, Value: pairs[i+1]})
	}
	return lr
}

func TestOpenStore_Migrates(t *testing.T) {
	s := newTestStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// running again is a no-op
	require.NoError(t, s.MigrateUp())
}

func TestStore_RecordAndLatest(t *testing.T) {
	s := newTestStore(t)

	latest, err := s.Latest("rig-7")
	require.NoError(t, err)
	assert.Nil(t, latest)

	t0 := time.Unix(1700000000, 0)
	_, err = s.Record("rig-7", t0, []wits0.LogicalRecord{frame("0108", "500.00")})
	require.NoError(t, err)

	records := []wits0.LogicalRecord{
		frame("1984", "PASON/EDR", "0108", "519.48"),
		{},
		frame("0110", "3705.81"),
	}
	id, err := s.Record("rig-7", t0.Add(time.Minute), records)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	latest, err = s.Latest("rig-7")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, id, latest.ExchangeID)
	assert.True(t, latest.CapturedAt.Equal(t0.Add(time.Minute)))
	require.Len(t, latest.Records, 3)
	assert.Equal(t, records[0].DataRecords, latest.Records[0].DataRecords)
	assert.Empty(t, latest.Records[1].DataRecords)
	assert.Equal(t, records[2].DataRecords, latest.Records[2].DataRecords)

	other, err := s.Latest("rig-9")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestStore_SamplesAndSummarize(t *testing.T) {
	s := newTestStore(t)
	t0 := time.Unix(1700000000, 0)
	for i, v := range []string{"1.0", "2.0", "3.0", "n/a", "6.0"} {
		_, err := s.Record("rig-7", t0.Add(time.Duration(i)*time.Second), []wits0.LogicalRecord{frame("0108", v, "0110", "9")})
		require.NoError(t, err)
	}

	samples, err := s.Samples("rig-7", "0108", 2)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "6.0", samples[0].Value)
	assert.Equal(t, "n/a", samples[1].Value)

	all, err := s.Samples("rig-7", "0108", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	sum, err := s.Summarize("rig-7", "0108")
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Count)
	assert.Equal(t, 1, sum.Skipped)
	assert.InDelta(t, 3.0, sum.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(14.0/3.0), sum.StdDev, 1e-9)
	assert.Equal(t, 1.0, sum.Min)
	assert.Equal(t, 6.0, sum.Max)

	empty, err := s.Summarize("rig-7", "9999")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)

	_, err = s.Samples("rig-7", "01", 0)
	assert.ErrorIs(t, err, wits0.ErrInvalidIdentifier)
}

func TestStore_SummarizeSingleValue(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Record("rig-7", time.Now(), []wits0.LogicalRecord{frame("0108", " 42.5 ")})
	require.NoError(t, err)

	sum, err := s.Summarize("rig-7", "0108")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count)
	assert.Equal(t, 42.5, sum.Mean)
	assert.Equal(t, 0.0, sum.StdDev)
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)
	t0 := time.Unix(1700000000, 0)
	for i := 0; i < 3; i++ {
		_, err := s.Record("rig-7", t0.Add(time.Duration(i)*time.Hour), []wits0.LogicalRecord{frame("0108", "1")})
		require.NoError(t, err)
	}

	n, err := s.Prune(t0.Add(90 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	samples, err := s.Samples("rig-7", "0108", 0)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}
