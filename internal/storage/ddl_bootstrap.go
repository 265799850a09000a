package storage

import (
	"context"
	"fmt"
	"sync"

	"dqx/internal/dataset"
)

// TableBootstrapper drops and recreates table so it matches schema. SQL
// backends register one per kind at init time.
type TableBootstrapper func(ctx context.Context, repo Repository, table string, schema dataset.Schema) error

// TableReplacer is implemented by repositories that own their destination
// directly (files) and need no DDL.
type TableReplacer interface {
	ReplaceTable(ctx context.Context, schema dataset.Schema) error
}

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]TableBootstrapper{}
)

// RegisterDDL registers (or replaces) the TableBootstrapper for kind.
func RegisterDDL(kind string, fn TableBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// ReplaceTable makes the destination of repo an empty table shaped like
// schema.
func ReplaceTable(ctx context.Context, cfg Config, repo Repository, schema dataset.Schema) error {
	if r, ok := repo.(TableReplacer); ok {
		return r.ReplaceTable(ctx, schema)
	}
	ddlMu.RLock()
	fn, ok := ddlFns[cfg.Kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("storage: no DDL bootstrapper registered for kind %q", cfg.Kind)
	}
	return fn(ctx, repo, cfg.Table, schema)
}
