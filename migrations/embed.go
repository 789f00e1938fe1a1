// Package migrations embeds the PostgreSQL schema migrations so binaries can migrate without a
// checkout of the repository.
package migrations

import "embed"

// FS holds the numbered up and down migrations.
//
//go:embed *.sql
var FS embed.FS
