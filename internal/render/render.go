package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"

	"github.com/noah-isme/tkp-service/internal/pricing"
	"github.com/noah-isme/tkp-service/internal/tkp"
)

// DefaultTemplate is the template file rendered for proposals.
const DefaultTemplate = "tkp.md.tmpl"

// Renderer expands the proposal template found in Dir.
type Renderer struct {
	Dir  string
	Name string
}

// New constructs a Renderer for the given template directory and file name.
func New(dir, name string) *Renderer {
	if strings.TrimSpace(name) == "" {
		name = DefaultTemplate
	}
	return &Renderer{Dir: dir, Name: name}
}

// View is the template context: the proposal plus its derived totals.
type View struct {
	tkp.Data
	TotalBeforeDiscount float64
	GrandTotal          float64
}

// Render produces the Markdown document for data. The template is read from
// disk on every call so edits apply without a restart.
func (r *Renderer) Render(data tkp.Data) (string, error) {
	tmpl, err := r.load()
	if err != nil {
		return "", err
	}
	lines := data.Lines()
	view := View{
		Data:                data,
		TotalBeforeDiscount: pricing.TotalBeforeDiscount(lines),
		GrandTotal:          pricing.ComputeGrandTotal(lines, data.Commercial.DiscountPercent),
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, filepath.Base(r.Name), view); err != nil {
		return "", fmt.Errorf("render %s: %w", r.Name, err)
	}
	return buf.String(), nil
}

// Path returns the full path of the template file.
func (r *Renderer) Path() string {
	return filepath.Join(r.Dir, r.Name)
}

func (r *Renderer) load() (*template.Template, error) {
	tmpl, err := template.New(filepath.Base(r.Name)).
		Funcs(Funcs()).
		Option("missingkey=zero").
		ParseFiles(r.Path())
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", r.Path(), err)
	}
	return tmpl, nil
}

// Funcs returns the helpers available inside proposal templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money":     Money,
		"lineTotal": func(item tkp.ScopeItem) float64 { return pricing.LineTotal(item.Line()) },
		"inc":       func(i int) int { return i + 1 },
		"orDash":    orDash,
		"yesNo":     yesNo,
		"percent":   percent,
	}
}

// Money formats an amount with space-separated thousands and two comma decimals.
func Money(v float64) string {
	return humanize.FormatFloat("# ###,##", v)
}

func orDash(v any) string {
	switch t := v.(type) {
	case nil:
		return "—"
	case string:
		if strings.TrimSpace(t) == "" {
			return "—"
		}
		return t
	case *string:
		if t == nil || strings.TrimSpace(*t) == "" {
			return "—"
		}
		return *t
	default:
		return fmt.Sprint(v)
	}
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}

func percent(p *float64) string {
	if p == nil {
		return "0"
	}
	return humanize.FtoaWithDigits(*p, 2)
}
