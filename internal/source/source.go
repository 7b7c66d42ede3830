// Package source enumerates input documents and extracts their metadata.
package source

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/loom/api"
	"github.com/agentic-research/loom/internal/frontmatter"
	"github.com/agentic-research/loom/internal/logger"
	"github.com/agentic-research/loom/internal/pipeline"
)

// ErrValidation marks a document that fails the extraction rules.
var ErrValidation = errors.New("document validation failed")

// Transformer reads documents through a billy filesystem and extracts
// one metadata tree per document. Extraction runs in parallel across
// documents — each works on locally owned data — and Transform returns
// only after every worker finishes, so callers see a completed set.
type Transformer struct {
	fs      billy.Filesystem
	workers int
}

func NewTransformer(fsys billy.Filesystem, workers int) *Transformer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Transformer{fs: fsys, workers: workers}
}

// Transform enumerates patterns, extracts every matched document and
// applies the validation rules. Matching zero documents is not an error
// here; the prepare stage decides whether an empty set is fatal.
func (t *Transformer) Transform(ctx context.Context, patterns []string, rules pipeline.ValidationRules, _ *api.Schema) ([]frontmatter.Document, error) {
	checks, err := compileRules(rules)
	if err != nil {
		return nil, err
	}

	paths, err := t.enumerate(patterns)
	if err != nil {
		return nil, err
	}
	logger.Logger.Debugw("documents enumerated", "count", len(paths))

	docs := make([]frontmatter.Document, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	sem := make(chan struct{}, t.workers)
	for i, p := range paths {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			docs[i], errs[i] = t.extract(path, checks)
		}(i, p)
	}
	wg.Wait() // barrier: aggregation must never see a partial set

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var combined error
	for _, e := range errs {
		combined = errors.CombineErrors(combined, e)
	}
	if combined != nil {
		return nil, combined
	}
	return docs, nil
}

func (t *Transformer) enumerate(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := util.Glob(t.fs, pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %q", pattern)
		}
		if len(matches) == 0 {
			// A literal path with no glob metacharacters still counts if
			// it exists.
			if _, serr := t.fs.Stat(pattern); serr == nil {
				matches = []string{pattern}
			}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (t *Transformer) extract(path string, checks ruleChecks) (frontmatter.Document, error) {
	raw, err := util.ReadFile(t.fs, path)
	if err != nil {
		return frontmatter.Document{}, errors.Wrapf(err, "read %s", path)
	}
	doc, err := frontmatter.Parse(path, raw)
	if err != nil {
		return frontmatter.Document{}, err
	}
	if err := checks.apply(doc); err != nil {
		return frontmatter.Document{}, err
	}
	return doc, nil
}

type ruleChecks struct {
	required []string
	patterns map[string]*regexp.Regexp
}

func compileRules(rules pipeline.ValidationRules) (ruleChecks, error) {
	c := ruleChecks{required: rules.RequiredFields}
	if len(rules.FieldPatterns) > 0 {
		c.patterns = make(map[string]*regexp.Regexp, len(rules.FieldPatterns))
		for field, expr := range rules.FieldPatterns {
			re, err := regexp.Compile(expr)
			if err != nil {
				return ruleChecks{}, errors.Wrapf(err, "pattern for field %q", field)
			}
			c.patterns[field] = re
		}
	}
	return c, nil
}

func (c ruleChecks) apply(doc frontmatter.Document) error {
	for _, field := range c.required {
		if !doc.Meta.Has(field) {
			return errors.Wrapf(ErrValidation, "%s: missing required field %q", doc.Path, field)
		}
	}
	for field, re := range c.patterns {
		v, err := doc.Meta.Get(field)
		if err != nil {
			continue // presence is the required-fields check's job
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		if !re.MatchString(s) {
			return errors.Wrapf(ErrValidation, "%s: field %q value %q does not match %q", doc.Path, field, s, re.String())
		}
	}
	return nil
}
