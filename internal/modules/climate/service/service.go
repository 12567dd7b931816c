package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/metrics"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/repository"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/window"
)

// Ingestion sources, used as the metrics label.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// DefaultDevice is used when neither the payload nor the transport names a device.
const DefaultDevice = "esp32"

type Service struct {
	repository    repository.ClimateRepository
	defaultDevice string
	location      *time.Location
	now           func() time.Time
}

type Option func(*Service)

// WithClock overrides the wall clock used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the time zone dashboard timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.location = loc
	}
}

func NewService(repository repository.ClimateRepository, defaultDevice string, opts ...Option) *Service {
	if defaultDevice == "" {
		defaultDevice = DefaultDevice
	}
	s := &Service{
		repository:    repository,
		defaultDevice: defaultDevice,
		location:      time.Local,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates body and appends the resulting reading. deviceHint, when
// set, replaces the configured default device for payloads without one.
func (s *Service) Ingest(ctx context.Context, source string, body []byte, deviceHint string) (types.Reading, error) {
	device := s.defaultDevice
	if deviceHint != "" {
		device = deviceHint
	}

	reading, err := ParsePayload(body, s.now(), device)
	if err != nil {
		metrics.IngestRejected.WithLabelValues(source, rejectReason(err)).Inc()
		return types.Reading{}, err
	}

	if err := s.repository.AppendReading(ctx, reading); err != nil {
		metrics.IngestRejected.WithLabelValues(source, "storage").Inc()
		return types.Reading{}, fmt.Errorf("append reading: %w", err)
	}
	metrics.ReadingsIngested.WithLabelValues(source).Inc()

	slog.Debug("reading stored",
		"source", source,
		"device", reading.DeviceID,
		"ts_epoch", reading.Timestamp,
	)
	return reading, nil
}

// Window is a display-ready slice of the most recent readings.
type Window struct {
	Rows  []types.Row
	Total int
}

// Latest returns the last n readings formatted for display; n <= 0 returns all.
func (s *Service) Latest(ctx context.Context, n int) (Window, error) {
	records, err := s.repository.ListRecords(ctx)
	if err != nil {
		return Window{}, fmt.Errorf("list records: %w", err)
	}
	return Window{
		Rows:  window.Latest(records, n, s.location),
		Total: len(records),
	}, nil
}

// Export writes the raw data file to w.
func (s *Service) Export(w io.Writer) (int64, error) {
	return s.repository.Export(w)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidJSON):
		return "invalid_json"
	case errors.Is(err, ErrBadFields):
		return "bad_fields"
	default:
		return "other"
	}
}
