package migrations

import "embed"

// PostgresFS embeds the PostgreSQL schema files, applied in name order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS
