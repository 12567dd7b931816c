// Package window selects the most recent readings and prepares them for display.
package window

import (
	"strconv"
	"strings"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
)

// TimeLayout is the display format for reading timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// LastN returns the final n records in their original order. n <= 0, or n
// larger than the number of records, returns all of them.
func LastN[T any](records []T, n int) []T {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}

// Format converts records to display rows, rendering timestamps in loc.
// A nil loc means time.Local.
func Format(records []types.Record, loc *time.Location) []types.Row {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]types.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, types.Row{
			Time:      FormatTimestamp(rec.TsEpoch, loc),
			TsEpoch:   rec.TsEpoch,
			Device:    rec.Device,
			TempC:     rec.TempC,
			HumPct:    rec.HumPct,
			Malformed: rec.Malformed,
		})
	}
	return rows
}

// Latest is Format applied to LastN.
func Latest(records []types.Record, n int, loc *time.Location) []types.Row {
	return Format(LastN(records, n), loc)
}

// FormatTimestamp renders an epoch-seconds string, or returns the placeholder
// when it does not parse.
func FormatTimestamp(tsEpoch string, loc *time.Location) string {
	ts, err := strconv.ParseInt(strings.TrimSpace(tsEpoch), 10, 64)
	if err != nil {
		return types.Placeholder
	}
	return time.Unix(ts, 0).In(loc).Format(TimeLayout)
}
