package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixlearn/helix/internal/record"
	"github.com/helixlearn/helix/internal/sequencer"
)

// AnswerOptions holds flags for the answer command.
type AnswerOptions struct {
	*RootOptions
	Correct      bool
	ResponseMs   int64
	CorrectCount int
	TotalCount   int
	AvgMs        int64
	FactID       string
}

// NewAnswerCommand creates the answer command.
func NewAnswerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnswerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "answer <user-id> <stitch-id>",
		Short: "Record an answered question",
		Long: `Record an answered question: updates the fact's mastery first, then
repositions the stitch in its queue, appends to the attempt log, and
rotates the helix if the rotation cadence is due.

Example:
  helix answer maria mul-s01 --correct --response-ms 1200 \
      --correct-count 18 --total-count 20 --avg-ms 1500`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnswer(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.Correct, "correct", false, "first attempt was correct")
	cmd.Flags().Int64Var(&opts.ResponseMs, "response-ms", 0, "response time of this answer in ms")
	cmd.Flags().IntVar(&opts.CorrectCount, "correct-count", 0, "correct answers in the stitch session")
	cmd.Flags().IntVar(&opts.TotalCount, "total-count", 0, "total answers in the stitch session")
	cmd.Flags().Int64Var(&opts.AvgMs, "avg-ms", 0, "average response time of the session in ms")
	cmd.Flags().StringVar(&opts.FactID, "fact", "", "fact answered (default: the stitch's primary fact)")
	_ = cmd.MarkFlagRequired("response-ms")
	_ = cmd.MarkFlagRequired("correct-count")
	_ = cmd.MarkFlagRequired("total-count")
	_ = cmd.MarkFlagRequired("avg-ms")

	return cmd
}

func runAnswer(cmd *cobra.Command, opts *AnswerOptions, userID, stitchID string) error {
	ctx := cmd.Context()
	a, err := newApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()
	out := a.formatter(cmd.OutOrStdout())

	pathID, err := a.pathOfStitch(stitchID)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolve stitch", err)
	}
	f, err := a.loadFacade(ctx, userID)
	if err != nil {
		return err
	}

	p := record.Performance{
		CorrectFirstAttempt: opts.Correct,
		ResponseTimeMs:      opts.ResponseMs,
		CorrectCount:        opts.CorrectCount,
		TotalCount:          opts.TotalCount,
		AvgResponseTimeMs:   opts.AvgMs,
	}
	res, err := f.RecordAnswer(userID, pathID, stitchID, opts.FactID, p)
	if err != nil {
		return reportFacadeError(out, err)
	}
	rotation, err := f.MaybeRotate(userID, sequencer.TriggerCadence)
	if err != nil {
		return reportFacadeError(out, err)
	}

	if err := a.save(ctx, f, userID); err != nil {
		return err
	}
	if err := a.store.AppendAttempt(ctx, res.Attempt); err != nil {
		return WrapExitError(ExitFailure, "append attempt log", err)
	}

	if out.JSON() {
		payload := map[string]any{
			"mastery": res.Mastery,
			"queue":   res.Queue,
			"attempt": res.Attempt,
		}
		if rotation != nil {
			payload["rotation"] = rotation
		}
		return out.Success(payload)
	}

	if res.Mastery.Changed {
		fmt.Fprintf(out.Writer, "Level:  %s -> %s\n", res.Mastery.PreviousLevel, res.Mastery.NewLevel)
	} else {
		fmt.Fprintf(out.Writer, "Level:  %s (unchanged)\n", res.Mastery.NewLevel)
	}
	fmt.Fprintf(out.Writer, "Score:  %.3f\n", res.Mastery.MasteryScore)
	fmt.Fprintf(out.Writer, "Queue:  position %d -> %d (skip %d)\n",
		res.Queue.PreviousPosition, res.Queue.NewPosition, res.Queue.SkipNumber)
	if rotation != nil {
		fmt.Fprintf(out.Writer, "Rotated: %s -> %s\n", rotation.PreviousActive, rotation.NewActive)
	}
	return nil
}

// pathOfStitch resolves which path a stitch belongs to by scanning the
// curriculum.
func (a *app) pathOfStitch(stitchID string) (string, error) {
	for _, pathID := range a.curriculum.PathIDs() {
		stitches, err := a.curriculum.StitchesForPath(pathID)
		if err != nil {
			return "", err
		}
		for _, s := range stitches {
			if s.ID == stitchID {
				return pathID, nil
			}
		}
	}
	return "", fmt.Errorf("no stitch %q in the curriculum", stitchID)
}
