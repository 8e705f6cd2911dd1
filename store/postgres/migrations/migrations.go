// Package migrations embeds the versioned goose migrations for the shared
// Postgres document store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
