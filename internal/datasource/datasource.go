// Package datasource defines where the bytes of an input dataset come from.
package datasource

import (
	"context"
	"io"
)

// Source opens the raw input of a run. Name identifies the input in logs and
// reports (a path or URL).
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}
