// Package cli implements the helix command line interface: a thin host
// around the sequencing facade and the SQLite store. Commands load a user's
// snapshot, run one facade operation, and save the snapshot back, so every
// invocation is a complete load-act-persist cycle.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DBPath     string
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the helix CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "helix",
		Short: "helix - adaptive fact sequencing engine",
		Long: `helix tracks per-fact mastery on a five-level boundary scale, spaces
repetition by moving stitches through per-path queues, and rotates a
learner between three parallel learning paths.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "helix.db", "path to the SQLite state database")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML tunables file")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewAnswerCommand(opts))
	cmd.AddCommand(NewRotateCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}
