package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRotateCommand creates the rotate command.
func NewRotateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate <user-id>",
		Short: "Force a helix rotation",
		Long: `Force a helix rotation: the active path becomes preparing and the
preparing path that has waited longest becomes active.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRotate(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runRotate(cmd *cobra.Command, opts *RootOptions, userID string) error {
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
	res, err := f.Rotate(userID)
	if err != nil {
		return reportFacadeError(out, err)
	}
	if err := a.save(ctx, f, userID); err != nil {
		return err
	}

	if out.JSON() {
		return out.Success(res)
	}
	fmt.Fprintf(out.Writer, "Rotated: %s -> %s (rotation %d)\n",
		res.PreviousActive, res.NewActive, res.RotationCount)
	return nil
}
