package schema

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/fieldpath"
	"github.com/agentic-research/loom/internal/pipeline"
)

// Validate checks the schema's structure and directive placement.
// References must already be resolved.
func Validate(s *api.Schema) error {
	if s.Type != "" && s.Type != "object" {
		return errors.Wrapf(ErrInvalid, "root type must be object, got %q", s.Type)
	}
	if s.OutputFormat != "" && !pipeline.ValidFormat(pipeline.Format(s.OutputFormat)) {
		return errors.Wrapf(ErrInvalid, "unsupported x-output-format %q", s.OutputFormat)
	}

	arena, err := Flatten(s)
	if err != nil {
		return err
	}

	var problems []string
	for i := range arena.Entries {
		e := arena.Entries[i]
		at := strings.Join(arena.PropertyPath(int32(i)), ".")

		if e.Node.DerivedUnique && e.Node.DerivedFrom == "" {
			problems = append(problems, at+": x-derived-unique requires x-derived-from")
		}
		if e.Node.DerivedFrom != "" {
			if _, perr := fieldpath.ParsePattern(e.Node.DerivedFrom); perr != nil {
				problems = append(problems, at+": bad x-derived-from path: "+perr.Error())
			}
		}
		if e.Node.Part && e.Node.Type != "array" {
			problems = append(problems, at+": x-part requires an array-typed node")
		}
		if e.Node.Flatten != "" && e.Node.Type != "" && e.Node.Type != "object" {
			problems = append(problems, at+": x-flatten targets a property of an object node")
		}
	}
	if len(problems) > 0 {
		return errors.Wrapf(ErrInvalid, "%s", strings.Join(problems, "; "))
	}
	return nil
}
