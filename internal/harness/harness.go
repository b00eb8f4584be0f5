package harness

import (
	"fmt"
	"time"

	"github.com/helixlearn/helix/internal/config"
	"github.com/helixlearn/helix/internal/record"
	"github.com/helixlearn/helix/internal/sequencer"
	"github.com/helixlearn/helix/internal/testutil"
)

// Scenario is one scripted learner session.
type Scenario struct {
	Name              string
	Description       string
	UserID            string
	InitialDifficulty int
	Tunables          *config.Tunables // nil → defaults
	Steps             []Step
}

// Step is one scenario action: exactly one field is set.
type Step struct {
	Answer *AnswerStep
	Rotate bool
}

// AnswerStep answers whatever question the engine presents next.
type AnswerStep struct {
	Correct      bool
	ResponseMs   int64
	CorrectCount int
	TotalCount   int
	AvgMs        int64
}

// TraceEvent is one entry in a scenario trace. Type is "init", "answer",
// or "rotate"; the other fields are populated per type. Scores are
// intentionally absent: traces hold only integral state so expected output
// can be derived by hand.
type TraceEvent struct {
	Type string

	// init
	Queues map[string][]string

	// answer
	Seq              int64
	PathID           string
	StitchID         string
	FactID           string
	Level            int
	Changed          bool
	PreviousPosition int
	NewPosition      int
	Skip             int

	// rotate
	PreviousActive string
	NewActive      string
	RotationCount  int64
}

// Result is the outcome of one scenario run.
type Result struct {
	Trace []TraceEvent
}

// scenarioStart anchors all scenario timestamps; each facade call advances
// the simulated clock by one second.
var scenarioStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes a scenario against a fresh deterministic engine.
func Run(scenario *Scenario) (*Result, error) {
	tun := config.Default()
	if scenario.Tunables != nil {
		tun = *scenario.Tunables
	}
	fixture := fixtureContent{}
	facade, err := sequencer.New(tun, fixture, fixture,
		sequencer.WithTimeSource(testutil.NewTimeSource(scenarioStart, time.Second).Now),
		sequencer.WithAttemptIDs(testutil.NewSequentialIDs("attempt")),
	)
	if err != nil {
		return nil, fmt.Errorf("harness: build engine: %w", err)
	}

	snap, err := facade.InitializeUser(scenario.UserID, scenario.InitialDifficulty)
	if err != nil {
		return nil, fmt.Errorf("harness: initialize %s: %w", scenario.UserID, err)
	}
	result := &Result{}
	result.Trace = append(result.Trace, TraceEvent{Type: "init", Queues: snap.Queues})

	for i, step := range scenario.Steps {
		switch {
		case step.Answer != nil:
			if err := runAnswer(facade, scenario.UserID, step.Answer, result); err != nil {
				return nil, fmt.Errorf("harness: step %d: %w", i+1, err)
			}
		case step.Rotate:
			res, err := facade.Rotate(scenario.UserID)
			if err != nil {
				return nil, fmt.Errorf("harness: step %d: %w", i+1, err)
			}
			result.Trace = append(result.Trace, TraceEvent{
				Type:           "rotate",
				PreviousActive: res.PreviousActive,
				NewActive:      res.NewActive,
				RotationCount:  res.RotationCount,
			})
		default:
			return nil, fmt.Errorf("harness: step %d is empty", i+1)
		}
	}
	return result, nil
}

func runAnswer(facade *sequencer.Facade, userID string, step *AnswerStep, result *Result) error {
	q, err := facade.NextQuestionSource(userID)
	if err != nil {
		return err
	}
	p := record.Performance{
		CorrectFirstAttempt: step.Correct,
		ResponseTimeMs:      step.ResponseMs,
		CorrectCount:        step.CorrectCount,
		TotalCount:          step.TotalCount,
		AvgResponseTimeMs:   step.AvgMs,
	}
	res, err := facade.RecordAnswer(userID, q.PathID, q.StitchID, q.Fact.ID, p)
	if err != nil {
		return err
	}
	result.Trace = append(result.Trace, TraceEvent{
		Type:             "answer",
		Seq:              res.Attempt.Seq,
		PathID:           q.PathID,
		StitchID:         q.StitchID,
		FactID:           q.Fact.ID,
		Level:            int(res.Mastery.NewLevel),
		Changed:          res.Mastery.Changed,
		PreviousPosition: res.Queue.PreviousPosition,
		NewPosition:      res.Queue.NewPosition,
		Skip:             res.Queue.SkipNumber,
	})
	return nil
}
