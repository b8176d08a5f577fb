// Package migrations holds the goose SQL migrations compiled into every binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
