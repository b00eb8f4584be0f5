// Package content ships the built-in arithmetic curriculum: three learning
// paths (multiplication, addition, subtraction), each a fixed ordered list
// of stitches bundling related facts. The engine treats all of this as
// opaque IDs; only hosts render statements and answers.
package content

import (
	"errors"
	"fmt"

	"github.com/helixlearn/helix/internal/record"
)

// Sentinel errors for the content package.
var (
	ErrFactNotFound = errors.New("content: fact not found")
	ErrPathNotFound = errors.New("content: path not found")
)

// Path IDs of the built-in curriculum, in rotation order: multiplication
// starts active.
const (
	PathMultiplication = "path-mult"
	PathAddition       = "path-add"
	PathSubtraction    = "path-sub"
)

// stitchSize is how many facts each built-in stitch bundles.
const stitchSize = 4

// Curriculum is an immutable content set. It satisfies the sequencing
// facade's FactRepository and ContentProvider interfaces.
type Curriculum struct {
	paths    [3]string
	facts    map[string]record.Fact
	stitches map[string][]record.Stitch // path ID → ordered stitches
}

// Builtin returns the arithmetic curriculum: operand pairs (a, b) for
// a, b in 2..9 on each path, grouped into stitches of four facts. The
// construction is deterministic, so IDs and ordering are stable across
// runs.
func Builtin() *Curriculum {
	c := &Curriculum{
		paths:    [3]string{PathMultiplication, PathAddition, PathSubtraction},
		facts:    make(map[string]record.Fact),
		stitches: make(map[string][]record.Stitch),
	}
	c.addPath(PathMultiplication, "mul", "multiplication", func(a, b int) (string, string) {
		return fmt.Sprintf("%d × %d", a, b), fmt.Sprintf("%d", a*b)
	})
	c.addPath(PathAddition, "add", "addition", func(a, b int) (string, string) {
		return fmt.Sprintf("%d + %d", a, b), fmt.Sprintf("%d", a+b)
	})
	c.addPath(PathSubtraction, "sub", "subtraction", func(a, b int) (string, string) {
		return fmt.Sprintf("%d − %d", a+b, b), fmt.Sprintf("%d", a)
	})
	return c
}

func (c *Curriculum) addPath(pathID, prefix, operation string, render func(a, b int) (string, string)) {
	var pending []string
	flush := func() {
		if len(pending) == 0 {
			return
		}
		stitchID := fmt.Sprintf("%s-s%02d", prefix, len(c.stitches[pathID])+1)
		c.stitches[pathID] = append(c.stitches[pathID], record.Stitch{
			ID:      stitchID,
			PathID:  pathID,
			FactIDs: pending,
		})
		pending = nil
	}
	for a := 2; a <= 9; a++ {
		for b := 2; b <= 9; b++ {
			statement, answer := render(a, b)
			id := fmt.Sprintf("%s-%dx%d", prefix, a, b)
			c.facts[id] = record.Fact{
				ID:        id,
				Statement: statement,
				Answer:    answer,
				Operation: operation,
			}
			pending = append(pending, id)
			if len(pending) == stitchSize {
				flush()
			}
		}
	}
	flush()
}

// FactByID resolves one fact.
func (c *Curriculum) FactByID(id string) (record.Fact, error) {
	fact, ok := c.facts[id]
	if !ok {
		return record.Fact{}, fmt.Errorf("%w: %s", ErrFactNotFound, id)
	}
	return fact, nil
}

// PathIDs returns the three path IDs in rotation order.
func (c *Curriculum) PathIDs() [3]string {
	return c.paths
}

// StitchesForPath returns the path's stitches in authoring order. The
// returned slice is a copy; callers may reorder it freely.
func (c *Curriculum) StitchesForPath(pathID string) ([]record.Stitch, error) {
	stitches, ok := c.stitches[pathID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, pathID)
	}
	out := make([]record.Stitch, len(stitches))
	copy(out, stitches)
	return out, nil
}

// Facts returns all facts, for hosts that need to enumerate the content
// set (e.g. the simulator picking random answers).
func (c *Curriculum) Facts() []record.Fact {
	out := make([]record.Fact, 0, len(c.facts))
	for _, f := range c.facts {
		out = append(out, f)
	}
	return out
}
