// Package archive copies the readings file into the SQLite archive database.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/csvstore"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
)

// RecordSource yields every stored row in file order.
type RecordSource interface {
	ScanAll(ctx context.Context) ([]types.Record, error)
	Path() string
}

// Result summarizes one archive run.
type Result struct {
	Scanned  int
	Inserted int
	Skipped  int
}

type Archiver struct {
	source RecordSource
	db     *sql.DB
	logger *slog.Logger
}

func New(source RecordSource, db *sql.DB, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{source: source, db: db, logger: logger}
}

// Run inserts every well-formed row that is not archived yet. A row's
// 1-based position in the file is its key, so reruns only add new rows.
// Malformed rows are skipped and counted.
func (a *Archiver) Run(ctx context.Context) (res Result, err error) {
	records, err := a.source.ScanAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("scan %s: %w", a.source.Path(), err)
	}
	res.Scanned = len(records)

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO readings (seq, ts_epoch, device, temp_c, hum_pct) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return Result{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		seq := i + 1
		reading, parseErr := csvstore.ParseReading(rec)
		if parseErr != nil {
			res.Skipped++
			a.logger.Debug("archive: skipping malformed row", "seq", seq, "error", parseErr)
			continue
		}
		out, err := stmt.ExecContext(ctx, seq, reading.Timestamp, reading.DeviceID, reading.TemperatureC, reading.HumidityPct)
		if err != nil {
			return Result{}, fmt.Errorf("insert seq %d: %w", seq, err)
		}
		n, err := out.RowsAffected()
		if err != nil {
			return Result{}, fmt.Errorf("rows affected seq %d: %w", seq, err)
		}
		res.Inserted += int(n)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO archive_runs (source_path, scanned, inserted, skipped) VALUES (?, ?, ?, ?)`,
		a.source.Path(), res.Scanned, res.Inserted, res.Skipped,
	); err != nil {
		return Result{}, fmt.Errorf("record run: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}

	a.logger.Info("archive complete",
		"source", a.source.Path(),
		"scanned", res.Scanned,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
	)
	return res, nil
}

// Count returns the number of archived readings.
func (a *Archiver) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}
