// corpus-gen writes a synthetic document corpus for exercising the
// pipeline: N markdown files with frontmatter metadata drawn from a
// small vocabulary, plus a matching schema. Useful for manual runs and
// for profiling the directive passes on larger inputs.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

var (
	categories = []string{"basic", "advanced", "internal", "deprecated"}
	topics     = []string{"storage", "network", "render", "schema", "cli"}
)

const schemaBody = `{
	"version": "1",
	"type": "object",
	"x-template": "main.tmpl",
	"properties": {
		"commands": {"type": "array", "x-part": true},
		"categories": {
			"type": "array",
			"x-derived-from": "commands[].category",
			"x-derived-unique": true
		}
	}
}`

const templateBody = `{"categories": {{json .data.categories}}, "count": {{len .documents}}}`

func main() {
	count := flag.Int("n", 100, "Number of documents to generate")
	outDir := flag.String("out", "corpus", "Output directory")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	docsDir := filepath.Join(*outDir, "docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		fatal(err)
	}

	for i := 0; i < *count; i++ {
		doc := fmt.Sprintf("---\ncategory: %s\ntopic: %s\nweight: %d\n---\n\nGenerated document %d.\n",
			categories[rng.Intn(len(categories))],
			topics[rng.Intn(len(topics))],
			rng.Intn(100),
			i,
		)
		path := filepath.Join(docsDir, fmt.Sprintf("doc-%04d.md", i))
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			fatal(err)
		}
	}

	if err := os.WriteFile(filepath.Join(*outDir, "schema.json"), []byte(schemaBody), 0o644); err != nil {
		fatal(err)
	}
	if err := os.WriteFile(filepath.Join(*outDir, "main.tmpl"), []byte(templateBody), 0o644); err != nil {
		fatal(err)
	}

	fmt.Printf("Wrote %d documents under %s (seed %d)\n", *count, docsDir, *seed)
	fmt.Printf("Try: loom -s %s -o out.json %s\n",
		filepath.Join(*outDir, "schema.json"),
		filepath.Join(docsDir, "*.md"),
	)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
