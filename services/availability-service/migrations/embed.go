// Package migrations embeds the availability-service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
