package csvstore

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
)

// Delimiter separates fields on a line. It must differ from the decimal
// separator used for the numeric columns.
const Delimiter = ';'

const formatHintPrefix = "sep="

// Columns is the fixed field order of the data file.
var Columns = []string{"ts_epoch", "device", "temp_c", "hum_pct"}

// ErrMalformedRow is returned for a stored line that does not carry all columns
// or whose values cannot be parsed.
var ErrMalformedRow = errors.New("malformed row")

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Header returns the lines written to a new data file. With formatHint the
// header is preceded by a "sep=;" line that spreadsheet tools use to pick the
// delimiter.
func Header(formatHint bool) []byte {
	var b bytes.Buffer
	if formatHint {
		b.WriteString(formatHintPrefix)
		b.WriteRune(Delimiter)
		b.WriteByte('\n')
	}
	writeFields(&b, Columns)
	return b.Bytes()
}

// IsFormatHint reports whether line is a "sep=<delimiter>" line.
func IsFormatHint(line string) bool {
	s := strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if len(s) <= len(formatHintPrefix) || !strings.EqualFold(s[:len(formatHintPrefix)], formatHintPrefix) {
		return false
	}
	return utf8.RuneCountInString(s[len(formatHintPrefix):]) == 1
}

// Encode renders r as a single newline-terminated line. Line breaks inside the
// device id are replaced by spaces so a reading never spans two lines.
func Encode(r types.Reading) []byte {
	var b bytes.Buffer
	writeFields(&b, []string{
		strconv.FormatInt(r.Timestamp, 10),
		lineBreaks.Replace(r.DeviceID),
		formatFloat(r.TemperatureC),
		formatFloat(r.HumidityPct),
	})
	return b.Bytes()
}

// Decode splits a stored line into a Record. A line with fewer than four
// fields still yields a Record, with Placeholder in the missing fields, along
// with an error wrapping ErrMalformedRow.
func Decode(line string) (types.Record, error) {
	fields := splitFields(strings.TrimRight(line, "\r\n"))
	rec := types.Record{
		TsEpoch: fieldAt(fields, 0),
		Device:  fieldAt(fields, 1),
		TempC:   fieldAt(fields, 2),
		HumPct:  fieldAt(fields, 3),
	}
	if len(fields) < len(Columns) {
		rec.Malformed = true
		return rec, fmt.Errorf("%w: %d of %d fields", ErrMalformedRow, len(fields), len(Columns))
	}
	return rec, nil
}

// ParseReading converts a decoded Record back into a typed Reading.
func ParseReading(rec types.Record) (types.Reading, error) {
	if rec.Malformed {
		return types.Reading{}, ErrMalformedRow
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(rec.TsEpoch), 10, 64)
	if err != nil {
		return types.Reading{}, fmt.Errorf("%w: ts_epoch %q", ErrMalformedRow, rec.TsEpoch)
	}
	temp, err := strconv.ParseFloat(strings.TrimSpace(rec.TempC), 64)
	if err != nil {
		return types.Reading{}, fmt.Errorf("%w: temp_c %q", ErrMalformedRow, rec.TempC)
	}
	hum, err := strconv.ParseFloat(strings.TrimSpace(rec.HumPct), 64)
	if err != nil {
		return types.Reading{}, fmt.Errorf("%w: hum_pct %q", ErrMalformedRow, rec.HumPct)
	}
	return types.Reading{
		Timestamp:    ts,
		DeviceID:     rec.Device,
		TemperatureC: temp,
		HumidityPct:  hum,
	}, nil
}

// DecodeReading is Decode followed by ParseReading.
func DecodeReading(line string) (types.Reading, error) {
	rec, err := Decode(line)
	if err != nil {
		return types.Reading{}, err
	}
	return ParseReading(rec)
}

func writeFields(b *bytes.Buffer, fields []string) {
	w := csv.NewWriter(b)
	w.Comma = Delimiter
	// Writes into a bytes.Buffer cannot fail.
	_ = w.Write(fields)
	w.Flush()
}

func splitFields(line string) []string {
	if line == "" {
		return nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return strings.Split(line, string(Delimiter))
	}
	return fields
}

func fieldAt(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return types.Placeholder
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
