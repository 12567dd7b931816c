package csvstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data.csv"), opts...)
	require.NoError(t, err)
	return s
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestOpen_WritesHeader(t *testing.T) {
	t.Run("with format hint", func(t *testing.T) {
		s := newTestStore(t)
		assert.Equal(t, "sep=;\nts_epoch;device;temp_c;hum_pct\n", readFile(t, s.Path()))
	})
	t.Run("without format hint", func(t *testing.T) {
		s := newTestStore(t, WithFormatHint(false))
		assert.Equal(t, "ts_epoch;device;temp_c;hum_pct\n", readFile(t, s.Path()))
	})
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "data.csv")
		s, err := Open(path)
		require.NoError(t, err)
		assert.FileExists(t, s.Path())
	})
}

func TestEnsureInitialized_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, types.Reading{Timestamp: 1, DeviceID: "a", TemperatureC: 1, HumidityPct: 2}))
	before := readFile(t, s.Path())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.EnsureInitialized())
	}
	_, err := Open(s.Path())
	require.NoError(t, err)

	assert.Equal(t, before, readFile(t, s.Path()))
	records, err := s.ScanAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEnsureInitialized_EmptyFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, string(Header(true)), readFile(t, s.Path()))
}

func TestEnsureInitialized_RecreatesDeletedFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.Remove(s.Path()))

	require.NoError(t, s.Append(context.Background(), types.Reading{Timestamp: 7, DeviceID: "x", TemperatureC: 1, HumidityPct: 1}))
	assert.Equal(t, string(Header(true))+"7;x;1;1\n", readFile(t, s.Path()))
}

func TestAppendThenScanAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := []types.Reading{
		{Timestamp: 1700000000, DeviceID: "esp32", TemperatureC: 21.5, HumidityPct: 55.2},
		{Timestamp: 1700000060, DeviceID: "esp32", TemperatureC: 21.7, HumidityPct: 54.9},
		{Timestamp: 1700000120, DeviceID: "attic", TemperatureC: 30, HumidityPct: 40},
	}
	for i, r := range in {
		require.NoError(t, s.Append(ctx, r))

		records, err := s.ScanAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, i+1)
	}

	records, err := s.ScanAll(ctx)
	require.NoError(t, err)
	for i, rec := range records {
		got, err := ParseReading(rec)
		require.NoError(t, err)
		assert.Equal(t, in[i], got)
	}
}

func TestScanAll_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	records, err := s.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScanAll_LegacyFileWithoutHint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "ts_epoch;device;temp_c;hum_pct\n1;esp32;20.0;50.0\n2;esp32;21.0;51.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, content, readFile(t, path), "existing file must not be rewritten")

	records, err := s.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].TsEpoch)
	assert.Equal(t, "21.0", records[1].TempC)
}

func TestScanAll_ToleratesBlankAndShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "sep=;\nts_epoch;device;temp_c;hum_pct\n" +
		"1;esp32;20;50\n" +
		"2;esp32\n" +
		"\n" +
		"3;esp32;22;52\n" +
		"\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	records, err := s.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.False(t, records[0].Malformed)
	assert.True(t, records[1].Malformed)
	assert.Equal(t, "esp32", records[1].Device)
	assert.Equal(t, types.Placeholder, records[1].TempC)
	assert.Equal(t, types.Placeholder, records[1].HumPct)
	assert.Equal(t, "3", records[2].TsEpoch)
	assert.False(t, records[2].Malformed)
}

func TestAppend_TerminatesTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "sep=;\nts_epoch;device;temp_c;hum_pct\n1;esp32;20;50\n2;esp"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), types.Reading{Timestamp: 3, DeviceID: "esp32", TemperatureC: 22, HumidityPct: 52}))

	records, err := s.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[1].Malformed)
	assert.Equal(t, "3", records[2].TsEpoch)
	assert.False(t, records[2].Malformed)
}

func TestAppend_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Append(ctx, types.Reading{Timestamp: 1})
	require.ErrorIs(t, err, context.Canceled)

	records, err := s.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAppend_ConcurrentWritersDoNotInterleave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 16
	const perWriter = 25

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			device := fmt.Sprintf("device-%02d-%s", w, strings.Repeat("x", 200))
			for i := 0; i < perWriter; i++ {
				errs <- s.Append(ctx, types.Reading{
					Timestamp:    int64(w*perWriter + i),
					DeviceID:     device,
					TemperatureC: float64(w),
					HumidityPct:  float64(i),
				})
			}
		}(w)
	}

	// Readers run alongside the writers and must only ever see whole rows.
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 20; i++ {
				records, err := s.ScanAll(ctx)
				if err != nil {
					errs <- err
					return
				}
				for _, rec := range records {
					if rec.Malformed {
						errs <- fmt.Errorf("reader saw malformed row %+v", rec)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	readers.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, err := s.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, writers*perWriter)

	seen := make(map[int64]bool, len(records))
	for _, rec := range records {
		r, err := ParseReading(rec)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(r.DeviceID, "device-"))
		assert.Equal(t, float64(int(r.Timestamp)/perWriter), r.TemperatureC)
		assert.Equal(t, float64(int(r.Timestamp)%perWriter), r.HumidityPct)
		seen[r.Timestamp] = true
	}
	assert.Len(t, seen, writers*perWriter)
}

func TestWriteTo(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(context.Background(), types.Reading{Timestamp: 9, DeviceID: "d", TemperatureC: 1.5, HumidityPct: 2.5}))

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "sep=;\nts_epoch;device;temp_c;hum_pct\n9;d;1.5;2.5\n", buf.String())
}

func TestStat(t *testing.T) {
	s := newTestStore(t)
	st, err := s.Stat()
	require.NoError(t, err)
	assert.Equal(t, s.Path(), st.Path)
	assert.Equal(t, int64(len(Header(true))), st.Size)
}
