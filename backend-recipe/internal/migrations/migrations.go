// Package migrations embeds the recipe service schema
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
