// Package ddl holds the Postgres DDL dialect.
package ddl

import (
	"dqx/internal/dataset"
	gddl "dqx/internal/ddl"
)

// MapType maps a logical type to a Postgres column type. String lists are
// native TEXT[] arrays.
//
//	integer        -> BIGINT
//	real           -> DOUBLE PRECISION
//	boolean        -> BOOLEAN
//	date           -> DATE
//	timestamp      -> TIMESTAMPTZ
//	array<string>  -> TEXT[]
//	everything else -> TEXT
func MapType(t dataset.LogicalType) string {
	switch t {
	case dataset.TypeInteger:
		return "BIGINT"
	case dataset.TypeReal:
		return "DOUBLE PRECISION"
	case dataset.TypeBoolean:
		return "BOOLEAN"
	case dataset.TypeDate:
		return "DATE"
	case dataset.TypeTimestamp:
		return "TIMESTAMPTZ"
	case dataset.TypeStringList:
		return "TEXT[]"
	default:
		return "TEXT"
	}
}

// Dialect renders Postgres DDL.
var Dialect = gddl.Dialect{
	Name:       "postgres",
	QuoteIdent: gddl.DoubleQuote,
	MapType:    MapType,
	DropTable:  gddl.DropIfExists,
}
