package repository

import (
	"context"
	"io"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/csvstore"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/metrics"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
)

type ClimateRepository interface {
	AppendReading(ctx context.Context, r types.Reading) error
	ListRecords(ctx context.Context) ([]types.Record, error)
	Export(w io.Writer) (int64, error)
}

type repositoryImpl struct {
	store *csvstore.Store
}

func NewRepository(store *csvstore.Store) ClimateRepository {
	return &repositoryImpl{store: store}
}

func (r *repositoryImpl) AppendReading(ctx context.Context, reading types.Reading) error {
	start := time.Now()
	err := r.store.Append(ctx, reading)
	metrics.StoreAppendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues("append").Inc()
	}
	return err
}

func (r *repositoryImpl) ListRecords(ctx context.Context) ([]types.Record, error) {
	records, err := r.store.ScanAll(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("scan").Inc()
		return nil, err
	}
	metrics.StoreScannedRows.Set(float64(len(records)))
	return records, nil
}

func (r *repositoryImpl) Export(w io.Writer) (int64, error) {
	n, err := r.store.WriteTo(w)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("export").Inc()
	}
	return n, err
}
