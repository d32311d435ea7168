package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	"go.uber.org/fx"

	cfgpkg "github.com/fatflowers/resumely/pkg/config"
)

const utf8Family = "body"

// sectionOrder puts the usual résumé sections first; any other keys follow alphabetically.
var sectionOrder = []string{
	"personalInfo", "summary", "experience", "education", "skills", "projects", "certificates", "languages",
}

// Document is what gets rendered: a title and the raw draft payload.
type Document struct {
	Title string
	Data  json.RawMessage
}

type PDFRenderer struct {
	fontPath string
}

func NewPDFRenderer(cfg *cfgpkg.Config) *PDFRenderer {
	return &PDFRenderer{fontPath: cfg.Render.FontPath}
}

// Render lays the draft out as plain text sections on A4 pages.
func (r *PDFRenderer) Render(doc Document) ([]byte, error) {
	var data map[string]any
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to decode draft data: %w", err)
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	family, tr := "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	if r.fontPath != "" {
		pdf.AddUTF8Font(utf8Family, "", r.fontPath)
		pdf.AddUTF8Font(utf8Family, "B", r.fontPath)
		family, tr = utf8Family, func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 18)
	title := doc.Title
	if title == "" {
		title = "CV"
	}
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	pdf.Ln(4)

	for _, key := range orderedKeys(data) {
		lines := flatten(data[key], "")
		if len(lines) == 0 {
			continue
		}
		pdf.SetFont(family, "B", 13)
		pdf.MultiCell(0, 7, tr(humanize(key)), "", "L", false)
		pdf.SetFont(family, "", 11)
		for _, line := range lines {
			pdf.MultiCell(0, 6, tr(line), "", "L", false)
		}
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to layout pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func orderedKeys(m map[string]any) []string {
	seen := make(map[string]bool, len(m))
	keys := make([]string, 0, len(m))
	for _, k := range sectionOrder {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// flatten turns nested draft values into display lines.
func flatten(v any, prefix string) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{prefix + t}
	case bool, float64:
		return []string{fmt.Sprintf("%s%v", prefix, t)}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, flatten(item, prefix+"- ")...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			for _, line := range flatten(t[k], "") {
				out = append(out, prefix+humanize(k)+": "+line)
			}
		}
		return out
	default:
		return []string{fmt.Sprintf("%s%v", prefix, t)}
	}
}

// humanize turns "personalInfo" or "start_date" into "Personal Info" / "Start Date".
func humanize(key string) string {
	var b strings.Builder
	upperNext := true
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			upperNext = true
			continue
		case r >= 'A' && r <= 'Z' && i > 0:
			b.WriteRune(' ')
		}
		if upperNext && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upperNext = false
		b.WriteRune(r)
	}
	return b.String()
}

var Module = fx.Options(
	fx.Provide(NewPDFRenderer),
)
