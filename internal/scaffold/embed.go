package scaffold

import "embed"

//go:embed all:templates
var templateFS embed.FS

// templateRoot is the embedded directory holding the default template.
const templateRoot = "templates/base_agent"
