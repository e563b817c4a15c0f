// ABOUTME: Context block composition and citation formatting for generated answers
// ABOUTME: Passages are numbered 1..N, truncated rune-safely, and cited in the same order
package generator

import (
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/Masterminds/sprig/v3"
	"github.com/harper/electionrag/internal/models"
)

const contextTemplate = `{{- range $i, $p := .Passages -}}
{{ if $i }}

{{ end }}{{ add1 $i }}. {{ truncate $.Limit (trim $p.Text) }}
{{- end -}}`

func newContextTemplate() (*template.Template, error) {
	funcs := sprig.TxtFuncMap()
	funcs["truncate"] = truncateRunes
	return template.New("context").Funcs(funcs).Parse(contextTemplate)
}

// truncateRunes cuts s to at most limit runes, marking the cut with "..."
func truncateRunes(limit int, s string) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func (g *Generator) composeContext(passages []models.Passage) (string, error) {
	if len(passages) == 0 {
		return "No context was retrieved.", nil
	}

	var b strings.Builder
	err := g.contextTmpl.Execute(&b, struct {
		Passages []models.Passage
		Limit    int
	}{passages, g.passageChars})
	if err != nil {
		return "", fmt.Errorf("compose context: %w", err)
	}
	return b.String(), nil
}

// Citations returns one citation per passage, in passage order
func Citations(passages []models.Passage) []models.Citation {
	if len(passages) == 0 {
		return nil
	}
	out := make([]models.Citation, len(passages))
	for i, p := range passages {
		out[i] = models.Citation{Index: i + 1, SourceID: p.SourceID}
	}
	return out
}

// FormatAnswer appends the citation list to the generated prose
func FormatAnswer(prose string, citations []models.Citation) string {
	prose = strings.TrimSpace(prose)
	if len(citations) == 0 {
		return prose
	}

	var b strings.Builder
	b.WriteString(prose)
	b.WriteString("\n\n")
	for i, c := range citations {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Source %d: %s", c.Index, c.SourceID)
	}
	return b.String()
}
