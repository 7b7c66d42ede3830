// Package render executes the output templates and encodes the result
// in the requested format.
package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"text/template"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/loom/internal/logger"
	"github.com/agentic-research/loom/internal/pipeline"
)

// Renderer renders the main template (and, per element, the items
// template) and writes the encoded output. Templates produce JSON text;
// the output format decides how that data is finally encoded, so one
// template serves every format.
type Renderer struct {
	fs billy.Filesystem
}

func NewRenderer(fsys billy.Filesystem) *Renderer {
	return &Renderer{fs: fsys}
}

func (r *Renderer) Render(_ context.Context, req pipeline.RenderRequest) error {
	mainTpl, err := util.ReadFile(r.fs, req.TemplatePath)
	if err != nil {
		return errors.Wrapf(err, "read template %s", req.TemplatePath)
	}

	var renderedItems []string
	if req.ItemsTemplatePath != "" {
		itemsTpl, err := util.ReadFile(r.fs, req.ItemsTemplatePath)
		if err != nil {
			return errors.Wrapf(err, "read items template %s", req.ItemsTemplatePath)
		}
		renderedItems = make([]string, 0, len(req.ItemsData))
		for i, item := range req.ItemsData {
			out, err := renderTemplate(string(itemsTpl), item)
			if err != nil {
				return errors.Wrapf(err, "render item %d", i)
			}
			renderedItems = append(renderedItems, out)
		}
	}

	out, err := renderTemplate(string(mainTpl), map[string]any{
		"data":      req.Prepared,
		"documents": req.MainData,
		"items":     renderedItems,
		"itemsData": req.ItemsData,
	})
	if err != nil {
		return errors.Wrapf(err, "render template %s", req.TemplatePath)
	}

	encoded, err := encode(out, req.OutputFormat)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(req.OutputPath); dir != "." && dir != "/" {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create output dir %s", dir)
		}
	}
	if err := util.WriteFile(r.fs, req.OutputPath, encoded, 0o644); err != nil {
		return errors.Wrapf(err, "write output %s", req.OutputPath)
	}

	if req.Verbose {
		logger.Logger.Infow("output written",
			"path", req.OutputPath,
			"format", req.OutputFormat,
			"bytes", len(encoded),
			"items", len(renderedItems),
		)
	}
	return nil
}

var tmplFuncs = template.FuncMap{
	"json": func(v any) string {
		return oj.JSON(v)
	},
	"first": func(v any) any {
		if s, ok := v.([]any); ok && len(s) > 0 {
			return s[0]
		}
		return nil
	},
	"quote": strconv.Quote,
}

func renderTemplate(tmpl string, values any) (string, error) {
	t, err := template.New("").Funcs(tmplFuncs).Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// encode converts the template's JSON output into the target format.
// Markdown passes the template output through untouched.
func encode(out string, format pipeline.Format) ([]byte, error) {
	if format == pipeline.FormatMarkdown {
		return []byte(out), nil
	}

	val, err := oj.ParseString(out)
	if err != nil {
		return nil, errors.Wrapf(err, "template output is not valid JSON (format %q)", format)
	}

	switch format {
	case pipeline.FormatJSON:
		return []byte(oj.JSON(val, 2) + "\n"), nil
	case pipeline.FormatYAML:
		return yaml.Marshal(val)
	case pipeline.FormatXML:
		return encodeXML(val)
	default:
		return nil, errors.Newf("unsupported output format %q", format)
	}
}

func encodeXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := writeXML(&buf, "root", v, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeXML emits one element per map key (sorted for determinism) and
// one <item> per array element.
func writeXML(buf *bytes.Buffer, tag string, v any, depth int) error {
	indent := func() {
		for i := 0; i < depth; i++ {
			buf.WriteString("  ")
		}
	}

	switch t := v.(type) {
	case map[string]any:
		indent()
		buf.WriteString("<" + tag + ">\n")
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := writeXML(buf, k, t[k], depth+1); err != nil {
				return err
			}
		}
		indent()
		buf.WriteString("</" + tag + ">\n")
	case []any:
		indent()
		buf.WriteString("<" + tag + ">\n")
		for _, el := range t {
			if err := writeXML(buf, "item", el, depth+1); err != nil {
				return err
			}
		}
		indent()
		buf.WriteString("</" + tag + ">\n")
	default:
		indent()
		buf.WriteString("<" + tag + ">")
		if t != nil {
			text, ok := t.(string)
			if !ok {
				text = fmt.Sprint(t)
			}
			if err := xml.EscapeText(buf, []byte(text)); err != nil {
				return err
			}
		}
		buf.WriteString("</" + tag + ">\n")
	}
	return nil
}
