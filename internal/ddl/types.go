package ddl

// ColumnDef describes a single column of a table definition.
//
// Name is unquoted; quoting happens at render time. Default is raw SQL.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name in dotted form (e.g. "schema.table") and an
// ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
