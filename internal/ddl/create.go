// Package ddl models SQL tables and renders the CREATE and DROP statements a
// sink needs to replace its destination table, once per SQL dialect.
//
// Each storage backend declares a Dialect (identifier quoting, type mapping,
// drop statement). The rendering rules are shared:
//
//	CREATE TABLE <fqn> (
//	  <col> <type> [NOT NULL] [DEFAULT <expr>],
//	  ...
//	  [PRIMARY KEY (<pk-cols>)]
//	);
package ddl

import (
	"context"
	"fmt"
	"strings"

	"dqx/internal/dataset"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres".
	Name string

	// QuoteIdent quotes one identifier segment.
	QuoteIdent func(string) string

	// MapType returns the column type for a logical type.
	MapType func(dataset.LogicalType) string

	// DropTable renders a statement that drops the quoted table if present.
	// It receives the quoted FQN.
	DropTable func(quotedFQN string) string
}

// QuoteFQN quotes each dotted segment of name. Empty segments are skipped.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// FromSchema derives a table definition for schema. All columns are
// nullable; null is a legitimate cell value in every dataset.
func (d Dialect) FromSchema(table string, schema dataset.Schema) TableDef {
	cols := make([]ColumnDef, len(schema))
	for i, c := range schema {
		cols[i] = ColumnDef{Name: c.Name, SQLType: d.MapType(c.Type), Nullable: true}
	}
	return TableDef{FQN: table, Columns: cols}
}

// BuildCreateTableSQL renders a CREATE TABLE statement for t. Primary key
// columns are always NOT NULL.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// Executor runs one SQL statement. storage.Repository satisfies it.
type Executor interface {
	Exec(ctx context.Context, sql string) error
}

// ReplaceTable drops table if it exists and creates it from schema.
func (d Dialect) ReplaceTable(ctx context.Context, ex Executor, table string, schema dataset.Schema) error {
	create, err := d.BuildCreateTableSQL(d.FromSchema(table, schema))
	if err != nil {
		return err
	}
	if err := ex.Exec(ctx, d.DropTable(d.QuoteFQN(table))); err != nil {
		return fmt.Errorf("%s ddl: drop %s: %w", d.Name, table, err)
	}
	if err := ex.Exec(ctx, create); err != nil {
		return fmt.Errorf("%s ddl: create %s: %w", d.Name, table, err)
	}
	return nil
}

// DropIfExists renders the common "DROP TABLE IF EXISTS" form.
func DropIfExists(quotedFQN string) string {
	return "DROP TABLE IF EXISTS " + quotedFQN + ";"
}

// DoubleQuote quotes an identifier with double quotes, doubling embedded
// quotes (ANSI, Postgres, SQLite).
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
