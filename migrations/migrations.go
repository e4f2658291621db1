// Package migrations embeds the schema migrations applied by the admin
// create-schema command.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
