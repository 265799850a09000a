package ddl

import (
	"testing"

	"dqx/internal/dataset"
)

func TestMapType(t *testing.T) {
	tests := map[dataset.LogicalType]string{
		dataset.TypeString:     "NVARCHAR(MAX)",
		dataset.TypeInteger:    "BIGINT",
		dataset.TypeReal:       "FLOAT",
		dataset.TypeBoolean:    "BIT",
		dataset.TypeDate:       "DATE",
		dataset.TypeTimestamp:  "DATETIMEOFFSET",
		dataset.TypeStringList: "NVARCHAR(MAX)",
	}
	for in, want := range tests {
		if got := MapType(in); got != want {
			t.Errorf("MapType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuoteAndDrop(t *testing.T) {
	q := Dialect.QuoteFQN("dbo.we]ird")
	if q != "[dbo].[we]]ird]" {
		t.Fatalf("QuoteFQN = %q", q)
	}
	want := "IF OBJECT_ID(N'[dbo].[clean]', N'U') IS NOT NULL DROP TABLE [dbo].[clean];"
	if got := DropTable("[dbo].[clean]"); got != want {
		t.Fatalf("DropTable = %q, want %q", got, want)
	}
}

func TestCreateTable(t *testing.T) {
	got, err := Dialect.BuildCreateTableSQL(Dialect.FromSchema("clean", dataset.Schema{
		{Name: "id", Type: dataset.TypeInteger},
		{Name: "ok", Type: dataset.TypeBoolean},
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := "CREATE TABLE [clean] (\n  [id] BIGINT,\n  [ok] BIT\n);"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
