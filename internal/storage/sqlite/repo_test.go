package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"dqx/internal/dataset"
	"dqx/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, table string) (storage.Config, storage.Repository) {
	t.Helper()
	cfg := storage.Config{
		Kind:  "sqlite",
		DSN:   filepath.Join(t.TempDir(), "dqx.db"),
		Table: table,
	}
	repo, err := storage.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return cfg, repo
}

func quarantine(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(dataset.Schema{
		{Name: "id", Type: dataset.TypeInteger},
		{Name: "name", Type: dataset.TypeString},
		{Name: "active", Type: dataset.TypeBoolean},
		{Name: "_errors", Type: dataset.TypeStringList},
	}, [][]any{
		{int64(1), "Ann", true, []string{"name_not_null", "id_unique"}},
		{int64(2), nil, false, nil},
	})
	require.NoError(t, err)
	return ds
}

//
// ---- round trip ----
//

func TestWriteDataset_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg, repo := openTemp(t, "quarantine")

	n, err := storage.WriteDataset(ctx, cfg, repo, quarantine(t), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	db, err := sql.Open("sqlite", cfg.DSN)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT "id", "name", "active", "_errors" FROM "quarantine" ORDER BY "id"`)
	require.NoError(t, err)
	defer rows.Close()

	type rec struct {
		id     int64
		name   sql.NullString
		active int64
		errs   sql.NullString
	}
	var got []rec
	for rows.Next() {
		var r rec
		require.NoError(t, rows.Scan(&r.id, &r.name, &r.active, &r.errs))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)

	assert.Equal(t, "Ann", got[0].name.String)
	assert.Equal(t, int64(1), got[0].active)
	assert.Equal(t, `["name_not_null","id_unique"]`, got[0].errs.String)
	assert.False(t, got[1].name.Valid)
	assert.False(t, got[1].errs.Valid)
}

func TestWriteDataset_ReplacesTable(t *testing.T) {
	ctx := context.Background()
	cfg, repo := openTemp(t, "clean")

	_, err := storage.WriteDataset(ctx, cfg, repo, quarantine(t), 10, nil)
	require.NoError(t, err)

	empty, err := dataset.New(dataset.Schema{{Name: "other", Type: dataset.TypeString}}, nil)
	require.NoError(t, err)
	n, err := storage.WriteDataset(ctx, cfg, repo, empty, 10, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	db, err := sql.Open("sqlite", cfg.DSN)
	require.NoError(t, err)
	defer db.Close()
	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "clean"`).Scan(&count))
	assert.Zero(t, count)
	_, err = db.ExecContext(ctx, `SELECT "other" FROM "clean"`)
	assert.NoError(t, err, "table recreated with the new schema")
}

//
// ---- errors ----
//

func TestNewRepository_EmptyDSN(t *testing.T) {
	_, _, err := NewRepository(context.Background(), Config{})
	assert.Error(t, err)
}

func TestCopyFrom_RowWidth(t *testing.T) {
	_, repo := openTemp(t, "t")
	require.NoError(t, repo.Exec(context.Background(), `CREATE TABLE "t" ("a" TEXT, "b" TEXT)`))

	_, err := repo.CopyFrom(context.Background(), []string{"a", "b"}, [][]any{{"x"}})
	assert.ErrorContains(t, err, "row length 1 != columns length 2")

	_, err = repo.CopyFrom(context.Background(), nil, [][]any{{"x"}})
	assert.Error(t, err)

	n, err := repo.CopyFrom(context.Background(), []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
