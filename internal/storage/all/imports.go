// Package all wires every built-in sink backend into the storage factory.
//
// Importing it for side effects registers these kinds:
//
//   - "postgres" (dqx/internal/storage/postgres)
//   - "mssql"    (dqx/internal/storage/mssql)
//   - "mysql"    (dqx/internal/storage/mysql)
//   - "sqlite"   (dqx/internal/storage/sqlite)
//   - "csv"      (dqx/internal/storage/csvfile)
//
// A binary that needs only a subset can import those packages directly.
package all

import (
	_ "dqx/internal/storage/csvfile"
	_ "dqx/internal/storage/mssql"
	_ "dqx/internal/storage/mysql"
	_ "dqx/internal/storage/postgres"
	_ "dqx/internal/storage/sqlite"
)
