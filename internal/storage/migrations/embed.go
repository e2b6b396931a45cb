// Package migrations applies the embedded schema files for the trade
// journal (PostgreSQL) and the price tick history (ClickHouse).
package migrations

import "embed"

// PostgresFS holds the trade journal schema files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the price tick history schema files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
