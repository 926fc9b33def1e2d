package webui

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/wikiscout/wikiscout/internal/session"
)

//go:embed templates/*.html templates/partials/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFiles embed.FS

const timeDisplayLayout = "2006-01-02 15:04:05"

// TemplateManager holds the parsed console templates.
type TemplateManager struct {
	templates *template.Template
}

// consoleFuncs are the helpers available inside every template.
var consoleFuncs = template.FuncMap{
	"formatScore":    formatScore,
	"formatDuration": formatDurationTemplate,
	"formatTime":     formatTime,
	"truncate":       truncate,
	"statusClass":    statusClass,
	"sub":            func(a, b int) int { return a - b },
	"add":            func(a, b int) int { return a + b },
}

// NewTemplateManager parses the embedded pages and partials.
func NewTemplateManager() (*TemplateManager, error) {
	tmpl, err := template.New("").Funcs(consoleFuncs).ParseFS(
		templatesFS, "templates/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &TemplateManager{templates: tmpl}, nil
}

// Render executes the named template into w.
func (tm *TemplateManager) Render(w io.Writer, name string, data interface{}) error {
	return tm.templates.ExecuteTemplate(w, name, data)
}

// formatScore renders a weighted similarity with stable width.
func formatScore(score float64) string {
	return fmt.Sprintf("%.4f", score)
}

// formatDurationTemplate shows "-" for unset durations.
func formatDurationTemplate(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return formatDuration(d)
}

// formatDuration renders a duration as compact h/m/s text.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	sec := (d - m*time.Minute) / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

// formatTime shows "-" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeDisplayLayout)
}

// truncate shortens text for table cells, appending an ellipsis.
// Counts runes, not bytes; article names are frequently non-ASCII.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// statusClass maps a finished operation to its CSS class.
func statusClass(op session.OperationInfo) string {
	if op.Error != "" {
		return "op-failed"
	}
	return "op-ok"
}
