package locales

import "embed"

//go:embed *.toml
var FS embed.FS
