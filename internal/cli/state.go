package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixlearn/helix/internal/record"
	"github.com/helixlearn/helix/internal/store"
)

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state [user-id]",
		Short: "Show a learner's saved state, or list learners",
		Long: `Show a learner's saved state: mastery records, queue orderings, and the
triple helix. Without a user ID, lists all initialized learners.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runStateList(cmd, rootOpts)
			}
			return runState(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runStateList(cmd *cobra.Command, opts *RootOptions) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	out := a.formatter(cmd.OutOrStdout())

	users, err := a.store.Users(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "list users", err)
	}
	if out.JSON() {
		return out.Success(map[string]any{"users": users})
	}
	if len(users) == 0 {
		fmt.Fprintln(out.Writer, "No learners initialized.")
		return nil
	}
	for _, u := range users {
		fmt.Fprintln(out.Writer, u)
	}
	return nil
}

func runState(cmd *cobra.Command, opts *RootOptions, userID string) error {
	ctx := cmd.Context()
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	out := a.formatter(cmd.OutOrStdout())

	snap, err := a.store.LoadSnapshot(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("user %q is not initialized", userID), err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "load snapshot", err)
	}
	attempts, err := a.store.Attempts(ctx, userID)
	if err != nil {
		return WrapExitError(ExitFailure, "load attempt log", err)
	}

	if out.JSON() {
		return out.Success(map[string]any{
			"snapshot": snap,
			"attempts": len(attempts),
		})
	}
	printSnapshot(out, snap, len(attempts))
	return nil
}

func printSnapshot(out *OutputFormatter, snap record.Snapshot, attempts int) {
	fmt.Fprintf(out.Writer, "User: %s  (attempts: %d, rotations: %d)\n",
		snap.UserID, attempts, snap.Helix.RotationCount)

	fmt.Fprintln(out.Writer, "Paths:")
	for _, p := range snap.Helix.Paths {
		marker := " "
		if p.Status == record.StatusActive {
			marker = "*"
		}
		fmt.Fprintf(out.Writer, "  %s %-10s %-9s difficulty %d  front: %s\n",
			marker, p.PathID, p.Status, p.Difficulty, p.CurrentStitchID)
	}

	if len(snap.Mastery) == 0 {
		fmt.Fprintln(out.Writer, "Mastery: none yet")
		return
	}
	fmt.Fprintln(out.Writer, "Mastery:")
	for _, m := range snap.Mastery {
		fmt.Fprintf(out.Writer, "  %-10s level %d (%-11s) score %.3f  +%d/-%d\n",
			m.FactID, int(m.Level), m.Level, m.MasteryScore,
			m.ConsecutiveCorrect, m.ConsecutiveMisses)
	}
}
