// Package csvstore keeps readings in an append-only, semicolon-delimited text
// file. The file is the single source of truth: rows are only ever appended,
// and readers see a prefix of the append sequence.
package csvstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/modules/climate/types"
)

// Store owns the data file. Appends hold the write side of mu and an exclusive
// flock for the whole open/write/sync/close sequence; readers take a size
// snapshot under the read side and then read that many bytes, which is always
// a whole number of lines.
type Store struct {
	path       string
	formatHint bool
	logger     *slog.Logger

	mu sync.RWMutex
}

// Stats describes the data file.
type Stats struct {
	Path    string
	Size    int64
	ModTime time.Time
}

type Option func(*Store)

// WithFormatHint controls whether a new file starts with a "sep=;" line.
func WithFormatHint(enabled bool) Option {
	return func(s *Store) {
		s.formatHint = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open returns a Store for path, creating the file with its header if needed.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("csvstore: empty path")
	}
	s := &Store{
		path:       path,
		formatHint: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.EnsureInitialized(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// EnsureInitialized creates the data file and writes its header when the file
// is missing or empty. An existing file with content is left untouched.
func (s *Store) EnsureInitialized() error {
	if s.initialized() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked()
}

func (s *Store) initialized() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func (s *Store) ensureLocked() (err error) {
	if s.initialized() {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("csvstore: mkdir %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("csvstore: create %s: %w", s.path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("csvstore: close %s: %w", s.path, closeErr)
		}
	}()
	if err := lockFile(f, true); err != nil {
		return fmt.Errorf("csvstore: lock %s: %w", s.path, err)
	}
	defer s.unlock(f)

	// Another process may have written the header between Stat and the lock.
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("csvstore: stat %s: %w", s.path, err)
	}
	if info.Size() > 0 {
		return nil
	}

	if _, err := f.Write(Header(s.formatHint)); err != nil {
		return fmt.Errorf("csvstore: write header %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("csvstore: sync %s: %w", s.path, err)
	}
	s.logger.Info("data file initialized", "path", s.path, "format_hint", s.formatHint)
	return nil
}

// Append durably writes one reading to the end of the file. The line is
// flushed to stable storage before Append returns.
func (s *Store) Append(ctx context.Context, r types.Reading) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := Encode(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("csvstore: open %s: %w", s.path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("csvstore: close %s: %w", s.path, closeErr)
		}
	}()
	if err := lockFile(f, true); err != nil {
		return fmt.Errorf("csvstore: lock %s: %w", s.path, err)
	}
	defer s.unlock(f)

	if err := terminateTornLine(f); err != nil {
		return fmt.Errorf("csvstore: repair tail %s: %w", s.path, err)
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("csvstore: append %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("csvstore: sync %s: %w", s.path, err)
	}
	return nil
}

// ScanAll returns every stored row in file order, skipping the format hint and
// header lines. Rows with missing fields are returned with placeholders and
// never abort the scan.
func (s *Store) ScanAll(ctx context.Context) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, size, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	defer s.close(f)

	records, err := s.scan(io.LimitReader(f, size))
	if err != nil {
		return nil, fmt.Errorf("csvstore: scan %s: %w", s.path, err)
	}
	return records, nil
}

// WriteTo copies the raw file, header included, to w.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	f, size, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	defer s.close(f)

	n, err := io.CopyN(w, f, size)
	if err != nil {
		return n, fmt.Errorf("csvstore: export %s: %w", s.path, err)
	}
	return n, nil
}

func (s *Store) Stat() (Stats, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return Stats{}, fmt.Errorf("csvstore: stat %s: %w", s.path, err)
	}
	return Stats{Path: s.path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// snapshot opens the file and records its size while no append is in flight.
// Since the file only grows, reading size bytes yields whole lines only.
func (s *Store) snapshot() (*os.File, int64, error) {
	if err := s.EnsureInitialized(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, 0, fmt.Errorf("csvstore: open %s: %w", s.path, err)
	}
	if err := lockFile(f, false); err != nil {
		s.close(f)
		return nil, 0, fmt.Errorf("csvstore: lock %s: %w", s.path, err)
	}
	info, err := f.Stat()
	s.unlock(f)
	if err != nil {
		s.close(f)
		return nil, 0, fmt.Errorf("csvstore: stat %s: %w", s.path, err)
	}
	return f, info.Size(), nil
}

func (s *Store) scan(r io.Reader) ([]types.Record, error) {
	br := bufio.NewReader(r)
	var (
		out        []types.Record
		lineNo     int
		headerSeen bool
	)
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, readErr
		}
		if line != "" {
			lineNo++
			switch {
			case !headerSeen && lineNo == 1 && IsFormatHint(line):
			case !headerSeen:
				headerSeen = true
			case strings.TrimSpace(line) == "":
			default:
				rec, err := Decode(line)
				if err != nil {
					s.logger.Debug("malformed row", "path", s.path, "line", lineNo, "error", err)
				}
				out = append(out, rec)
			}
		}
		if readErr != nil {
			return out, nil
		}
	}
}

// terminateTornLine writes a newline when the file does not end with one, so
// a line left half-written by a crashed writer is not merged with the next.
func terminateTornLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}

func (s *Store) unlock(f *os.File) {
	if err := unlockFile(f); err != nil {
		s.logger.Error("unlock data file", "path", s.path, "error", err)
	}
}

func (s *Store) close(f *os.File) {
	if err := f.Close(); err != nil {
		s.logger.Error("close data file", "path", s.path, "error", err)
	}
}
