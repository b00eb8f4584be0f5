package cli

import (
	"fmt"
	"math/rand"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helixlearn/helix/internal/record"
	"github.com/helixlearn/helix/internal/sequencer"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Answers int
	Seed    int64
	Skill   float64
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <user-id>",
		Short: "Drive a simulated learner through the engine",
		Long: `Drive a simulated learner through the engine: answers questions with a
seeded random skill model, printing each mastery and queue movement. The
resulting state and attempt log are persisted like real answers.

Example:
  helix simulate maria --answers 50 --seed 7 --skill 0.8`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Answers, "answers", 30, "number of answers to simulate")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed for the skill model")
	cmd.Flags().Float64Var(&opts.Skill, "skill", 0.75, "probability of a correct first attempt (0-1)")

	return cmd
}

func runSimulate(cmd *cobra.Command, opts *SimulateOptions, userID string) error {
	ctx := cmd.Context()
	if opts.Answers < 1 {
		return WrapExitError(ExitCommandError, "answers must be at least 1", nil)
	}
	if opts.Skill < 0 || opts.Skill > 1 {
		return WrapExitError(ExitCommandError, "skill must be in [0, 1]", nil)
	}

	a, err := newApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()
	out := a.formatter(cmd.OutOrStdout())

	f, err := a.loadFacade(ctx, userID)
	if err != nil {
		return err
	}

	correctMark := color.New(color.FgGreen).SprintFunc()
	missMark := color.New(color.FgRed).SprintFunc()
	levelMark := color.New(color.FgYellow).SprintFunc()
	rotateMark := color.New(color.FgCyan).SprintFunc()

	rng := rand.New(rand.NewSource(opts.Seed))
	levelChanges, rotations := 0, 0

	for i := 0; i < opts.Answers; i++ {
		q, err := f.NextQuestionSource(userID)
		if err != nil {
			return reportFacadeError(out, err)
		}
		p := simulatedPerformance(rng, opts.Skill)
		res, err := f.RecordAnswer(userID, q.PathID, q.StitchID, q.Fact.ID, p)
		if err != nil {
			return reportFacadeError(out, err)
		}
		if err := a.store.AppendAttempt(ctx, res.Attempt); err != nil {
			return WrapExitError(ExitFailure, "append attempt log", err)
		}

		if !out.JSON() {
			mark := correctMark("✓")
			if !p.CorrectFirstAttempt {
				mark = missMark("✗")
			}
			fmt.Fprintf(out.Writer, "%3d %s %-9s %-8s %4dms  pos %2d->%2d",
				i+1, mark, q.PathID, q.StitchID, p.ResponseTimeMs,
				res.Queue.PreviousPosition, res.Queue.NewPosition)
			if res.Mastery.Changed {
				fmt.Fprintf(out.Writer, "  %s", levelMark(fmt.Sprintf("level %s -> %s",
					res.Mastery.PreviousLevel, res.Mastery.NewLevel)))
				levelChanges++
			}
			fmt.Fprintln(out.Writer)
		}

		rotation, err := f.MaybeRotate(userID, sequencer.TriggerCadence)
		if err != nil {
			return reportFacadeError(out, err)
		}
		if rotation != nil {
			rotations++
			if !out.JSON() {
				fmt.Fprintf(out.Writer, "    %s\n", rotateMark(fmt.Sprintf("rotated %s -> %s",
					rotation.PreviousActive, rotation.NewActive)))
			}
		}
	}

	if err := a.save(ctx, f, userID); err != nil {
		return err
	}

	if out.JSON() {
		return out.Success(map[string]any{
			"answers":       opts.Answers,
			"level_changes": levelChanges,
			"rotations":     rotations,
		})
	}
	fmt.Fprintf(out.Writer, "\n%d answers, %d level changes, %d rotations\n",
		opts.Answers, levelChanges, rotations)
	return nil
}

// simulatedPerformance draws one answer from the skill model: response
// times between 800ms and 3200ms, session accuracy centred on the skill.
func simulatedPerformance(rng *rand.Rand, skill float64) record.Performance {
	correct := rng.Float64() < skill
	responseMs := int64(800 + rng.Intn(2400))
	total := 20
	correctCount := 0
	for j := 0; j < total; j++ {
		if rng.Float64() < skill {
			correctCount++
		}
	}
	return record.Performance{
		CorrectFirstAttempt: correct,
		ResponseTimeMs:      responseMs,
		CorrectCount:        correctCount,
		TotalCount:          total,
		AvgResponseTimeMs:   int64(800 + rng.Intn(2400)),
	}
}
