package window

import (
	"reflect"
	"testing"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
)

func TestLastN(t *testing.T) {
	records := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name string
		n    int
		want []int
	}{
		{name: "negative returns all", n: -3, want: []int{1, 2, 3, 4, 5}},
		{name: "zero returns all", n: 0, want: []int{1, 2, 3, 4, 5}},
		{name: "one", n: 1, want: []int{5}},
		{name: "two keeps order", n: 2, want: []int{4, 5}},
		{name: "len minus one", n: 4, want: []int{2, 3, 4, 5}},
		{name: "exactly len", n: 5, want: []int{1, 2, 3, 4, 5}},
		{name: "more than len", n: 50, want: []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LastN(records, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LastN(%v, %d) = %v; want %v", records, tt.n, got, tt.want)
			}
		})
	}
}

func TestLastN_Empty(t *testing.T) {
	if got := LastN([]int(nil), 3); len(got) != 0 {
		t.Errorf("LastN(nil, 3) = %v; want empty", got)
	}
}

func TestFormat(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	records := []types.Record{
		{TsEpoch: "1700000000", Device: "esp32", TempC: "21.5", HumPct: "55.2"},
		{TsEpoch: "not-a-time", Device: "esp32", TempC: "21.6", HumPct: "55.1"},
		{TsEpoch: "1700000060", Device: "esp32", TempC: types.Placeholder, HumPct: types.Placeholder, Malformed: true},
	}

	rows := Format(records, loc)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d; want 3", len(rows))
	}
	if rows[0].Time != "2023-11-14 17:13:20" {
		t.Errorf("rows[0].Time = %q; want %q", rows[0].Time, "2023-11-14 17:13:20")
	}
	if rows[0].TempC != "21.5" || rows[0].HumPct != "55.2" || rows[0].Device != "esp32" {
		t.Errorf("rows[0] = %+v; fields not carried over", rows[0])
	}
	if rows[1].Time != types.Placeholder {
		t.Errorf("rows[1].Time = %q; want placeholder", rows[1].Time)
	}
	if rows[1].TsEpoch != "not-a-time" {
		t.Errorf("rows[1].TsEpoch = %q; want raw value", rows[1].TsEpoch)
	}
	if !rows[2].Malformed || rows[2].TempC != types.Placeholder {
		t.Errorf("rows[2] = %+v; want malformed row with placeholders", rows[2])
	}
}

func TestLatest(t *testing.T) {
	var records []types.Record
	for _, ts := range []string{"100", "200", "300", "400", "500"} {
		records = append(records, types.Record{TsEpoch: ts, Device: "d", TempC: "1", HumPct: "2"})
	}

	rows := Latest(records, 2, time.UTC)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d; want 2", len(rows))
	}
	if rows[0].TsEpoch != "400" || rows[1].TsEpoch != "500" {
		t.Errorf("rows = %+v; want last two in chronological order", rows)
	}
	if rows[1].Time != "1970-01-01 00:08:20" {
		t.Errorf("rows[1].Time = %q; want %q", rows[1].Time, "1970-01-01 00:08:20")
	}
}

func TestFormat_NilLocationUsesLocal(t *testing.T) {
	rows := Format([]types.Record{{TsEpoch: "0"}}, nil)
	want := time.Unix(0, 0).In(time.Local).Format(TimeLayout)
	if rows[0].Time != want {
		t.Errorf("Time = %q; want %q", rows[0].Time, want)
	}
}
