// Package csvfile implements a storage.Repository that writes a delimited
// text file. Replacing the "table" truncates the file and writes the header;
// rows are appended with dataset.Format so the output reads back through the
// CSV parser.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dqx/internal/dataset"
	"dqx/internal/storage"
)

// Config holds file sink configuration.
type Config struct {
	Path  string
	Comma rune // defaults to ','
}

// Repository writes one CSV file.
type Repository struct {
	cfg Config

	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	cols []string
}

var (
	_ storage.Repository    = (*Repository)(nil)
	_ storage.TableReplacer = (*Repository)(nil)
)

// NewRepository validates cfg. The file is created by ReplaceTable.
func NewRepository(cfg Config) (*Repository, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("csvfile: path must not be empty")
	}
	if cfg.Comma == 0 {
		cfg.Comma = ','
	}
	return &Repository{cfg: cfg}, nil
}

// ReplaceTable truncates (or creates) the file and writes the header row.
// Missing parent directories are created.
func (r *Repository) ReplaceTable(ctx context.Context, schema dataset.Schema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.closeLocked(); err != nil {
		return err
	}
	if dir := filepath.Dir(r.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("csvfile: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(r.cfg.Path)
	if err != nil {
		return fmt.Errorf("csvfile: create %s: %w", r.cfg.Path, err)
	}
	w := csv.NewWriter(f)
	w.Comma = r.cfg.Comma

	r.f, r.w, r.cols = f, w, schema.Names()
	if err := w.Write(r.cols); err != nil {
		return fmt.Errorf("csvfile: header: %w", err)
	}
	return nil
}

// CopyFrom appends rows. columns must match the header written by
// ReplaceTable.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w == nil {
		return 0, fmt.Errorf("csvfile: %s not initialised; call ReplaceTable first", r.cfg.Path)
	}
	if strings.Join(columns, "\x00") != strings.Join(r.cols, "\x00") {
		return 0, fmt.Errorf("csvfile: columns %v do not match header %v", columns, r.cols)
	}

	rec := make([]string, len(columns))
	var n int64
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		for i, v := range row {
			rec[i] = dataset.Format(v)
		}
		if err := r.w.Write(rec); err != nil {
			return n, fmt.Errorf("csvfile: write: %w", err)
		}
		n++
	}
	r.w.Flush()
	return n, r.w.Error()
}

// Exec is a no-op; files have no DDL.
func (r *Repository) Exec(context.Context, string) error { return nil }

// Close flushes and closes the file.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.closeLocked()
}

func (r *Repository) closeLocked() error {
	if r.f == nil {
		return nil
	}
	r.w.Flush()
	werr := r.w.Error()
	cerr := r.f.Close()
	r.f, r.w = nil, nil
	if werr != nil {
		return fmt.Errorf("csvfile: flush: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("csvfile: close: %w", cerr)
	}
	return nil
}

func init() {
	storage.Register("csv", func(_ context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(Config{Path: cfg.Path})
	})
}
