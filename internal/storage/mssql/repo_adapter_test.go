package mssql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dqx/internal/storage"
)

func TestAdapterRegistrationAndClose(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	closed := 0
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed++ }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:  "mssql",
		DSN:   "sqlserver://sa:pw@localhost:1433?database=dq",
		Table: "dbo.clean",
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if gotCfg.Table != "dbo.clean" {
		t.Errorf("cfg.Table = %q", gotCfg.Table)
	}
	repo.Close()
	if closed != 1 {
		t.Fatalf("Close() invoked closeFn %d times, want 1", closed)
	}
}

func TestAdapter_PropagatesError(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()
	newRepository = func(context.Context, Config) (*Repository, func(), error) {
		return nil, nil, errors.New("boom")
	}
	if _, err := storage.New(context.Background(), storage.Config{Kind: "mssql"}); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("want boom, got %v", err)
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"})
	if err == nil || !strings.Contains(err.Error(), "mssql dsn") {
		t.Fatalf("want dsn error, got %v", err)
	}
}
