package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixlearn/helix/internal/sequencer"
	"github.com/helixlearn/helix/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Difficulty int
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <user-id>",
		Short: "Initialize a new learner",
		Long: `Initialize a new learner: builds the three path queues from the
built-in curriculum, marks the first path active, and saves the initial
snapshot.

Example:
  helix init maria --difficulty 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Difficulty, "difficulty", 1, "starting difficulty for all paths (1-5)")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions, userID string) error {
	ctx := cmd.Context()
	a, err := newApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()
	out := a.formatter(cmd.OutOrStdout())

	// The facade is fresh per invocation, so the duplicate check has to
	// consult the store: a second init must not overwrite saved progress.
	if _, err := a.store.LoadSnapshot(ctx, userID); err == nil {
		return reportFacadeError(out, &sequencer.Error{
			Code:   sequencer.CodeAlreadyInitialized,
			Op:     "InitializeUser",
			UserID: userID,
			Err:    fmt.Errorf("user %q already has saved state", userID),
		})
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return WrapExitError(ExitFailure, "load snapshot", err)
	}

	f, err := a.newFacade(ctx, userID)
	if err != nil {
		return err
	}
	snap, err := f.InitializeUser(userID, opts.Difficulty)
	if err != nil {
		return reportFacadeError(out, err)
	}
	if err := a.save(ctx, f, userID); err != nil {
		return err
	}

	if out.JSON() {
		return out.Success(snap)
	}
	fmt.Fprintf(out.Writer, "Initialized %s\n", userID)
	fmt.Fprintf(out.Writer, "  Active path: %s\n", snap.Helix.Active().PathID)
	for _, p := range snap.Helix.Paths {
		fmt.Fprintf(out.Writer, "  %-10s %-9s %d stitches, difficulty %d\n",
			p.PathID, p.Status, len(snap.Queues[p.PathID]), p.Difficulty)
	}
	return nil
}
