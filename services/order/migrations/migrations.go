// Package migrations embeds the order service schema for golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
