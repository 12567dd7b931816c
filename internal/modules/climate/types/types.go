package types

// Placeholder is rendered in place of a field that is missing from a stored row
// or cannot be displayed.
const Placeholder = "—"

// Reading is one temperature/humidity observation pushed by a device.
type Reading struct {
	Timestamp    int64   `json:"ts_epoch"`
	DeviceID     string  `json:"device"`
	TemperatureC float64 `json:"temp_c"`
	HumidityPct  float64 `json:"hum_pct"`
}

// Record is a stored row as read back from the data file. Fields keep their
// on-disk text; fields missing from a short row hold Placeholder.
type Record struct {
	TsEpoch   string
	Device    string
	TempC     string
	HumPct    string
	Malformed bool
}

// Row is the display form of a Record.
type Row struct {
	Time      string `json:"time"`
	TsEpoch   string `json:"ts_epoch"`
	Device    string `json:"device"`
	TempC     string `json:"temp_c"`
	HumPct    string `json:"hum_pct"`
	Malformed bool   `json:"malformed,omitempty"`
}
