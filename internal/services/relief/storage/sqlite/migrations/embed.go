package migrations

import "embed"

// FS contains embedded SQLite migrations for the relief ledger store.
//
//go:embed *.sql
var FS embed.FS
