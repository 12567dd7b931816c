package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/archive"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/backup"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/config"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/csvstore"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/db"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/db/migrate"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/logging"
)

var version = "dev"
var appName = "climactl"

const usage = `usage: %s <command>
  migrate  apply pending archive schema migrations
  archive  copy new rows from DATA_PATH into the SQLite archive (SQLITE_PATH)
  backup   upload a snapshot of DATA_PATH to s3://S3_BUCKET/S3_PREFIX
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "migrate":
		err = runMigrate(ctx, cfg)
	case "archive":
		err = runArchive(ctx, cfg)
	case "backup":
		err = runBackup(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func openArchive(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	conn, err := db.Open(cfg.SQLitePath, slog.Default())
	if err != nil {
		return nil, err
	}
	if _, err := migrate.Run(ctx, conn); err != nil {
		_ = db.Close(conn)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

func openStore(cfg config.Config) (*csvstore.Store, error) {
	return csvstore.Open(cfg.DataPath,
		csvstore.WithFormatHint(cfg.FormatHint),
		csvstore.WithLogger(slog.Default()),
	)
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	conn, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	fmt.Println("migrations applied")
	return nil
}

func runArchive(ctx context.Context, cfg config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	conn, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(conn)

	res, err := archive.New(store, conn, slog.Default()).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("scanned=%d inserted=%d skipped=%d\n", res.Scanned, res.Inserted, res.Skipped)
	return nil
}

func runBackup(ctx context.Context, cfg config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	client, err := backup.NewS3Client(ctx, cfg)
	if err != nil {
		return err
	}
	uploader, err := backup.NewUploader(client, backup.Options{
		Bucket:   cfg.S3Bucket,
		Prefix:   cfg.S3Prefix,
		Compress: cfg.BackupCompress,
	}, slog.Default())
	if err != nil {
		return err
	}

	res, err := uploader.Backup(ctx, store)
	if err != nil {
		return err
	}
	fmt.Printf("uploaded s3://%s/%s (%d bytes)\n", res.Bucket, res.Key, res.SentBytes)
	return nil
}

func closeDB(conn *sql.DB) {
	if err := db.Close(conn); err != nil {
		slog.Error("db close", "err", err)
	}
}
