// Package report renders a watch's FilterResult into a ReportOutput:
// currently one variant, a Handlebars-style template, rendered with
// github.com/aymerick/raymond (see DESIGN.md for why this templating
// engine was chosen).
package report

import (
	"fmt"

	"github.com/aymerick/raymond"

	"github.com/re-cinq/signalwatch/internal/config"
	"github.com/re-cinq/signalwatch/internal/watch"
)

// Metadata is a ReportOutput's structured half.
type Metadata struct {
	FileName  string
	DiffText  string
	Message   string
	LineRange *watch.LineRange
	Context   []watch.ContextEntry
}

// Output is one signal's rendered report.
type Output struct {
	Content  string
	Metadata Metadata
	Notify   map[string]config.NotifyValue
}

// Render renders filter into the shape a report_config describes, against
// the file it was extracted from.
func Render(cfg config.ReportConfig, filter *watch.FilterResult, filePath string) (*Output, error) {
	if cfg.Type != config.ReportHandlebars {
		return nil, fmt.Errorf("unsupported report type %q", cfg.Type)
	}

	tpl, err := raymond.Parse(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}

	vars := map[string]interface{}{
		"filePath": filePath,
		"diffText": raymond.SafeString(filter.DiffText),
		"left": map[string]interface{}{
			"artifact": raymond.SafeString(filter.Left),
		},
		"right": map[string]interface{}{
			"artifact": raymond.SafeString(filter.Right),
		},
	}

	content, err := tpl.Exec(vars)
	if err != nil {
		return nil, fmt.Errorf("rendering report template: %w", err)
	}

	return &Output{
		Content: content,
		Metadata: Metadata{
			FileName:  filePath,
			DiffText:  filter.DiffText,
			Message:   content,
			LineRange: filter.LineRange,
			Context:   filter.Context,
		},
	}, nil
}
