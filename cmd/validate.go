package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/loom/internal/logger"
	"github.com/agentic-research/loom/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schema>",
	Short: "Check a schema document without running the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(verbose, jsonLogs); err != nil {
			return err
		}
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		loader := schema.NewLoader(osfs.New("/"))
		s, err := loader.Load(path)
		if err != nil {
			return err
		}
		arena, err := schema.Flatten(s)
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok (%d entries, %d annotated, %d defaulted)\n",
			args[0], len(arena.Entries), arena.Annotated.GetCardinality(), arena.Defaulted.GetCardinality())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
