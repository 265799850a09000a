// Package parser defines how raw input bytes become a typed dataset.
package parser

import (
	"io"

	"dqx/internal/dataset"
)

// Parser reads a whole input into a Dataset. skipped counts malformed rows
// that were dropped instead of failing the read.
type Parser interface {
	ReadDataset(r io.Reader) (ds *dataset.Dataset, skipped int, err error)
}
