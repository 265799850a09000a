package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLocalOpen_ReadsContent(t *testing.T) {
	t.Parallel()

	p := writeCSV(t, "id,name\n1,Ann\n")
	src := NewLocal(p)
	assert.Equal(t, p, src.Name())

	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Ann\n", string(got))
}

func TestLocalOpen_Missing(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "missing.csv")
	rc, err := NewLocal(p).Open(context.Background())
	require.Error(t, err)
	assert.Nil(t, rc)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "open ")
}

func TestLocalOpen_PreCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc, err := NewLocal(writeCSV(t, "a\n")).Open(ctx)
	assert.Nil(t, rc)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkLocalOpen(b *testing.B) {
	p := filepath.Join(b.TempDir(), "data.csv")
	if err := os.WriteFile(p, []byte("a\n1\n"), 0o644); err != nil {
		b.Fatal(err)
	}
	src := NewLocal(p)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rc, err := src.Open(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := rc.Close(); err != nil {
			b.Fatal(err)
		}
	}
}
