// Package ddl holds the SQL Server DDL dialect.
package ddl

import (
	"fmt"
	"strings"

	"dqx/internal/dataset"
	gddl "dqx/internal/ddl"
)

// MapType maps a logical type to a SQL Server column type. String lists are
// stored as JSON text.
func MapType(t dataset.LogicalType) string {
	switch t {
	case dataset.TypeInteger:
		return "BIGINT"
	case dataset.TypeReal:
		return "FLOAT"
	case dataset.TypeBoolean:
		return "BIT"
	case dataset.TypeDate:
		return "DATE"
	case dataset.TypeTimestamp:
		return "DATETIMEOFFSET"
	default:
		return "NVARCHAR(MAX)"
	}
}

// QuoteIdent quotes with [brackets], escaping ].
func QuoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// DropTable is guarded by OBJECT_ID so it works on servers without
// DROP TABLE IF EXISTS.
func DropTable(quotedFQN string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;",
		strings.ReplaceAll(quotedFQN, "'", "''"), quotedFQN)
}

// Dialect renders SQL Server DDL.
var Dialect = gddl.Dialect{
	Name:       "mssql",
	QuoteIdent: QuoteIdent,
	MapType:    MapType,
	DropTable:  DropTable,
}
