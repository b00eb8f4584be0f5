package harness

import (
	"fmt"

	"github.com/helixlearn/helix/internal/record"
)

// fixtureContent is the harness curriculum: paths p-a, p-b, p-c with four
// single-fact stitches each (s-a1..s-a4 holding f-a1..f-a4, and so on).
type fixtureContent struct{}

func (fixtureContent) PathIDs() [3]string {
	return [3]string{"p-a", "p-b", "p-c"}
}

func (fixtureContent) StitchesForPath(pathID string) ([]record.Stitch, error) {
	suffix, ok := map[string]string{"p-a": "a", "p-b": "b", "p-c": "c"}[pathID]
	if !ok {
		return nil, fmt.Errorf("harness: no fixture path %s", pathID)
	}
	out := make([]record.Stitch, 4)
	for i := range out {
		out[i] = record.Stitch{
			ID:      fmt.Sprintf("s-%s%d", suffix, i+1),
			PathID:  pathID,
			FactIDs: []string{fmt.Sprintf("f-%s%d", suffix, i+1)},
		}
	}
	return out, nil
}

func (fixtureContent) FactByID(id string) (record.Fact, error) {
	for _, suffix := range []string{"a", "b", "c"} {
		for i := 1; i <= 4; i++ {
			if id == fmt.Sprintf("f-%s%d", suffix, i) {
				return record.Fact{ID: id, Statement: id, Answer: "0"}, nil
			}
		}
	}
	return record.Fact{}, fmt.Errorf("harness: no fixture fact %s", id)
}
