// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"dqx/internal/datasource"
)

var _ datasource.Source = (*Local)(nil)

// Local opens one file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the path.
func (l *Local) Name() string { return l.path }

// Open returns the file for reading. A context that is already done wins over
// the filesystem. Errors keep the os error in the chain, so
// errors.Is(err, os.ErrNotExist) works.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
