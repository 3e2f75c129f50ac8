package npc

import (
	"log/slog"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// TemplateData is what dialogue templates can reference.
type TemplateData struct {
	Player      string
	NPC         string
	Origin      string
	Destination string
}

// ExpandTemplate renders a dialogue string with the sprig function set. A
// template that fails to parse or execute is returned as-is, so a bad line in
// an NPC file degrades to literal text instead of silencing the NPC.
func ExpandTemplate(text string, data TemplateData) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	tmpl, err := template.New("dialogue").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		slog.Warn("parsing dialogue template", "error", err)
		return text
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		slog.Warn("executing dialogue template", "error", err)
		return text
	}
	return sb.String()
}
