// Package migrations holds the numbered schema scripts of the snapshot cache.
package migrations

import "embed"

// FS holds NNN_name.up.sql and NNN_name.down.sql pairs, applied in order.
//
//go:embed *.sql
var FS embed.FS
