// Package migrations holds the SQL schema migrations compiled into the binary.
package migrations

import "embed"

// FS contains every *.sql migration in this directory. File names sort in apply order.
//
//go:embed *.sql
var FS embed.FS
