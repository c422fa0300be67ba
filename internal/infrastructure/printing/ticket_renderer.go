package printing

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultTicketTemplate = `{{ rule }}
{{ center "KITCHEN" }}
{{ if .TableRef }}{{ padRight (printf "Table %s" .TableRef) 20 }}{{ else }}{{ padRight "Counter" 20 }}{{ end }}{{ padLeft (formatTime .OrderedAt) (sub width 20) }}
{{ rule }}
{{ printf "%dx" .Quantity }} {{ truncate (title .Item) (sub width 5) }}
{{ range .Modifiers }}   - {{ truncate . (sub width 5) }}
{{ end }}{{ rule }}
`

// TicketRenderer turns a job ticket into printable text
type TicketRenderer struct {
	width int
	tmpl  *template.Template
	title cases.Caser
}

type TicketRendererOption func(*TicketRenderer)

// WithTemplate replaces the built-in ticket layout
func WithTemplate(text string) TicketRendererOption {
	return func(r *TicketRenderer) {
		r.tmpl = template.Must(template.New("ticket").Funcs(r.funcMap()).Parse(text))
	}
}

// NewTicketRenderer creates a renderer for tickets width characters wide
func NewTicketRenderer(width int, opts ...TicketRendererOption) *TicketRenderer {
	if width < 24 {
		width = 24
	}
	r := &TicketRenderer{
		width: width,
		title: cases.Title(language.Und),
	}
	r.tmpl = template.Must(template.New("ticket").Funcs(r.funcMap()).Parse(defaultTicketTemplate))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render formats the ticket of job
func (r *TicketRenderer) Render(job *printing.Job) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, job.Ticket); err != nil {
		return nil, fmt.Errorf("render ticket for job %s: %w", job.ID, err)
	}
	return buf.Bytes(), nil
}

func (r *TicketRenderer) funcMap() template.FuncMap {
	return template.FuncMap{
		"width":      func() int { return r.width },
		"rule":       func() string { return strings.Repeat("-", r.width) },
		"center":     func(s string) string { return center(s, r.width) },
		"title":      func(s string) string { return r.title.String(s) },
		"upper":      strings.ToUpper,
		"truncate":   truncate,
		"padLeft":    padLeft,
		"padRight":   padRight,
		"formatTime": formatTime,
		"sub":        func(a, b int) int { return a - b },
	}
}

// truncate shortens s to max runes, ending with a dot when cut
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return string(runes[:1])
	}
	return string(runes[:max-1]) + "."
}

func padLeft(s string, length int) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return strings.Repeat(" ", length-n) + s
}

func padRight(s string, length int) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}

func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04")
}
