package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/helixlearn/helix/internal/record"
)

// toCanonicalMap converts a trace event into the shape serialized into
// golden files. Only the fields relevant to the event type are included.
func (e TraceEvent) toCanonicalMap() map[string]any {
	out := map[string]any{"type": e.Type}
	switch e.Type {
	case "init":
		queues := make(map[string]any, len(e.Queues))
		for pathID, stitchIDs := range e.Queues {
			queues[pathID] = stitchIDs
		}
		out["queues"] = queues
	case "answer":
		out["seq"] = e.Seq
		out["path_id"] = e.PathID
		out["stitch_id"] = e.StitchID
		out["fact_id"] = e.FactID
		out["level"] = e.Level
		out["changed"] = e.Changed
		out["previous_position"] = e.PreviousPosition
		out["new_position"] = e.NewPosition
		out["skip"] = e.Skip
	case "rotate":
		out["previous_active"] = e.PreviousActive
		out["new_active"] = e.NewActive
		out["rotation_count"] = e.RotationCount
	}
	return out
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/{scenario.Name}.golden. Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	events := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		events[i] = e.toCanonicalMap()
	}
	traceJSON, err := record.MarshalCanonical(map[string]any{
		"scenario_name": scenario.Name,
		"trace":         events,
	})
	if err != nil {
		return err
	}

	g := goldie.New(t)
	g.Assert(t, scenario.Name, traceJSON)
	return nil
}
