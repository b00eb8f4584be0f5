package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewNextCommand creates the next command.
func NewNextCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next <user-id>",
		Short: "Show the next question to present",
		Long: `Show the next question to present: the stitch at the front of the
active path's queue, with the primary fact and its boundary level.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runNext(cmd *cobra.Command, opts *RootOptions, userID string) error {
	ctx := cmd.Context()
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	out := a.formatter(cmd.OutOrStdout())

	f, err := a.loadFacade(ctx, userID)
	if err != nil {
		return err
	}
	q, err := f.NextQuestionSource(userID)
	if err != nil {
		return reportFacadeError(out, err)
	}
	// Lazy mastery initialization may have touched state.
	if err := a.save(ctx, f, userID); err != nil {
		return err
	}

	if out.JSON() {
		return out.Success(map[string]any{
			"path_id":        q.PathID,
			"stitch_id":      q.StitchID,
			"fact":           q.Fact,
			"boundary_level": q.BoundaryLevel,
		})
	}
	fmt.Fprintf(out.Writer, "Path:   %s\n", q.PathID)
	fmt.Fprintf(out.Writer, "Stitch: %s\n", q.StitchID)
	fmt.Fprintf(out.Writer, "Fact:   %s  (%s)\n", q.Fact.Statement, q.Fact.ID)
	fmt.Fprintf(out.Writer, "Level:  %d (%s)\n", int(q.BoundaryLevel), q.BoundaryLevel)
	return nil
}
