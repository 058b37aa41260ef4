// Package migrations embeds the SQL migrations of the sqlite session store.
package migrations

import "embed"

// Migrations holds the up/down files in golang-migrate naming.
//
//go:embed *.sql
var Migrations embed.FS
