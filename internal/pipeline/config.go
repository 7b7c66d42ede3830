package pipeline

import "github.com/cockroachdb/errors"

// Format is a rendered output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatXML      Format = "xml"
	FormatMarkdown Format = "markdown"
)

// DefaultFormat applies when neither config nor schema names a format.
const DefaultFormat = FormatJSON

// ValidFormat reports whether f is a supported output format.
func ValidFormat(f Format) bool {
	switch f {
	case FormatJSON, FormatYAML, FormatXML, FormatMarkdown:
		return true
	}
	return false
}

// Config is the immutable per-run configuration. It is created once,
// validated once, and read-only thereafter.
type Config struct {
	// SchemaPath locates the schema document. Required.
	SchemaPath string
	// TemplatePath overrides the schema's x-template binding. Optional.
	TemplatePath string
	// ItemsTemplatePath overrides the schema's x-items-template binding. Optional.
	ItemsTemplatePath string
	// InputPatterns are glob patterns or literal paths of source documents. Required.
	InputPatterns []string
	// OutputPath is where the rendered output is written. Required.
	OutputPath string
	// OutputFormat overrides the schema's x-output-format binding. Optional.
	OutputFormat Format
	// RequiredFields lists metadata fields every document must carry.
	RequiredFields []string
	// FieldPatterns maps metadata fields to regular expressions their
	// values must match during extraction.
	FieldPatterns map[string]string
	// Verbose enables partial-data dumps on failure.
	Verbose bool
}

// Validate checks required fields. Called once by InitializeCommand.
func (c Config) Validate() error {
	if c.SchemaPath == "" {
		return &ConfigurationError{Command: "initialize", State: KindInitializing, Reason: "schema path is empty"}
	}
	if len(c.InputPatterns) == 0 {
		return &ConfigurationError{Command: "initialize", State: KindInitializing, Reason: "no input pattern"}
	}
	for _, p := range c.InputPatterns {
		if p == "" {
			return &ConfigurationError{Command: "initialize", State: KindInitializing, Reason: "empty input pattern"}
		}
	}
	if c.OutputPath == "" {
		return &ConfigurationError{Command: "initialize", State: KindInitializing, Reason: "output path is empty"}
	}
	if c.OutputFormat != "" && !ValidFormat(c.OutputFormat) {
		return &ConfigurationError{
			Command: "initialize",
			State:   KindInitializing,
			Reason:  errors.Newf("unsupported output format %q", c.OutputFormat).Error(),
		}
	}
	return nil
}
