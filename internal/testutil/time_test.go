package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSource_AdvancesPerCall(t *testing.T) {
	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ts := NewTimeSource(start, time.Second)

	assert.Equal(t, start, ts.Now())
	assert.Equal(t, start.Add(time.Second), ts.Now())
	assert.Equal(t, start.Add(2*time.Second), ts.Peek())

	ts.Advance(time.Minute)
	assert.Equal(t, start.Add(2*time.Second+time.Minute), ts.Now())
}

func TestTimeSource_ZeroStepFreezes(t *testing.T) {
	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	ts := NewTimeSource(start, 0)

	assert.Equal(t, start, ts.Now())
	assert.Equal(t, start, ts.Now())
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("attempt")
	assert.Equal(t, "attempt-0001", g.Generate())
	assert.Equal(t, "attempt-0002", g.Generate())
}
