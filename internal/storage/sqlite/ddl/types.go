// Package ddl holds the SQLite DDL dialect.
package ddl

import (
	"dqx/internal/dataset"
	gddl "dqx/internal/ddl"
)

// MapType maps a logical type to a SQLite column affinity. Booleans are
// stored as 0/1, dates and timestamps as ISO-8601 text and string lists as
// JSON text.
func MapType(t dataset.LogicalType) string {
	switch t {
	case dataset.TypeInteger, dataset.TypeBoolean:
		return "INTEGER"
	case dataset.TypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Dialect renders SQLite DDL.
var Dialect = gddl.Dialect{
	Name:       "sqlite",
	QuoteIdent: gddl.DoubleQuote,
	MapType:    MapType,
	DropTable:  gddl.DropIfExists,
}
