// Package migrations embeds the PostgreSQL schema applied at startup when
// STORE_BACKEND=postgres.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
