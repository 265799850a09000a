// Package ddl holds the MySQL DDL dialect.
package ddl

import (
	"strings"

	"dqx/internal/dataset"
	gddl "dqx/internal/ddl"
)

// MapType maps a logical type to a MySQL column type. String lists use the
// JSON type.
func MapType(t dataset.LogicalType) string {
	switch t {
	case dataset.TypeInteger:
		return "BIGINT"
	case dataset.TypeReal:
		return "DOUBLE"
	case dataset.TypeBoolean:
		return "BOOLEAN"
	case dataset.TypeDate:
		return "DATE"
	case dataset.TypeTimestamp:
		return "DATETIME(6)"
	case dataset.TypeStringList:
		return "JSON"
	default:
		return "LONGTEXT"
	}
}

// QuoteIdent quotes with backticks, doubling embedded backticks.
func QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// Dialect renders MySQL DDL.
var Dialect = gddl.Dialect{
	Name:       "mysql",
	QuoteIdent: QuoteIdent,
	MapType:    MapType,
	DropTable:  gddl.DropIfExists,
}
