package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPerformance() Performance {
	return Performance{
		CorrectFirstAttempt: true,
		ResponseTimeMs:      1200,
		CorrectCount:        18,
		TotalCount:          20,
		AvgResponseTimeMs:   1500,
	}
}

func TestPerformance_Validate(t *testing.T) {
	require.NoError(t, validPerformance().Validate())

	tests := []struct {
		name   string
		mutate func(*Performance)
	}{
		{"zero total count", func(p *Performance) { p.TotalCount = 0 }},
		{"negative total count", func(p *Performance) { p.TotalCount = -1 }},
		{"negative correct count", func(p *Performance) { p.CorrectCount = -1 }},
		{"correct exceeds total", func(p *Performance) { p.CorrectCount = 21 }},
		{"zero response time", func(p *Performance) { p.ResponseTimeMs = 0 }},
		{"negative response time", func(p *Performance) { p.ResponseTimeMs = -50 }},
		{"zero average response time", func(p *Performance) { p.AvgResponseTimeMs = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPerformance()
			tt.mutate(&p)
			err := p.Validate()
			require.ErrorIs(t, err, ErrInvalidPerformance)
		})
	}
}

func TestPerformance_Ratio(t *testing.T) {
	p := validPerformance()
	assert.InDelta(t, 0.9, p.Ratio(), 1e-9)

	p.CorrectCount = 20
	assert.InDelta(t, 1.0, p.Ratio(), 1e-9)

	p.TotalCount = 0
	assert.Zero(t, p.Ratio())
}

func TestUserFactMastery_Clone(t *testing.T) {
	ms := int64(900)
	m := UserFactMastery{
		UserID:         "u1",
		FactID:         "mult-7-8",
		Level:          LevelOperation,
		MasteryScore:   0.64,
		LastResponseMs: &ms,
	}
	c := m.Clone()
	require.Equal(t, m, c)

	// Pointer fields must be independent copies.
	*c.LastResponseMs = 100
	assert.Equal(t, int64(900), *m.LastResponseMs)
}
