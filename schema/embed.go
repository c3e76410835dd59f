// Package schema embeds the JSON schemas shipped with dsk.
package schema

import "embed"

// FS exposes the embedded schema documents.
//
//go:embed remotes.schema.json
var FS embed.FS
