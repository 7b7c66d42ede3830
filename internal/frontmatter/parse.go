package frontmatter

import (
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Document is one source document: its origin path, the parsed metadata
// tree, and the body text that followed the metadata block.
type Document struct {
	Path string
	Meta Content
	Body string
}

// Parse splits the leading "---" fenced metadata block from raw and
// decodes it as YAML. A document without a fence yields empty metadata
// and the full text as body.
func Parse(path string, raw []byte) (Document, error) {
	text := string(raw)

	parts := strings.SplitN(text, "---", 3)
	if len(parts) < 3 || strings.TrimSpace(parts[0]) != "" {
		return Document{Path: path, Meta: Content{}, Body: text}, nil
	}

	var fields map[string]any
	block := strings.TrimSpace(parts[1])
	if block != "" {
		if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
			return Document{}, errors.Wrapf(err, "parse metadata block of %s", path)
		}
	}

	return Document{
		Path: path,
		Meta: Content{fields: normalizeMap(fields)},
		Body: strings.TrimSpace(parts[2]),
	}, nil
}

// normalizeMap rewrites yaml.v3 decode output so every nested map is a
// map[string]any and every list an []any, the shapes fieldpath resolves.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if s, ok := k.(string); ok {
				out[s] = normalizeValue(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = normalizeValue(el)
		}
		return out
	default:
		return v
	}
}
