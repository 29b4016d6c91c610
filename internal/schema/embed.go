package schema

import "embed"

// FS holds the JSON schemas of the Allure results files.
//
//go:embed schemas/*.json
var FS embed.FS
