package schema

import (
	"github.com/cockroachdb/errors"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/pipeline"
)

// ErrNoTemplate marks a run where neither config nor schema binds a
// template.
var ErrNoTemplate = errors.New("invalid template declaration")

// TemplateResolver derives the template paths and output format for a
// run: config overrides win, then the schema's x-template bindings, then
// the format default.
type TemplateResolver struct{}

func (TemplateResolver) Resolve(s *api.Schema, cfg pipeline.Config) (pipeline.TemplateResolution, error) {
	res := pipeline.TemplateResolution{
		TemplatePath:      cfg.TemplatePath,
		ItemsTemplatePath: cfg.ItemsTemplatePath,
		OutputFormat:      cfg.OutputFormat,
	}
	if res.TemplatePath == "" {
		res.TemplatePath = s.Template
	}
	if res.TemplatePath == "" {
		return pipeline.TemplateResolution{}, errors.Wrap(ErrNoTemplate, "no template path in config or schema")
	}
	if res.ItemsTemplatePath == "" {
		res.ItemsTemplatePath = s.ItemsTemplate
	}
	if res.OutputFormat == "" {
		res.OutputFormat = pipeline.Format(s.OutputFormat)
	}
	if res.OutputFormat == "" {
		res.OutputFormat = pipeline.DefaultFormat
	}
	if !pipeline.ValidFormat(res.OutputFormat) {
		return pipeline.TemplateResolution{}, errors.Wrapf(ErrNoTemplate, "unsupported output format %q", res.OutputFormat)
	}
	return res, nil
}
