package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundaryLevel_Ordering(t *testing.T) {
	// The five levels are ordinal, 1 through 5.
	assert.Equal(t, 1, int(LevelCategory))
	assert.Equal(t, 2, int(LevelMagnitude))
	assert.Equal(t, 3, int(LevelOperation))
	assert.Equal(t, 4, int(LevelRelatedFact))
	assert.Equal(t, 5, int(LevelNearMiss))
	assert.Equal(t, LevelCount, int(LevelNearMiss))
}

func TestBoundaryLevel_String(t *testing.T) {
	tests := []struct {
		level BoundaryLevel
		want  string
	}{
		{LevelCategory, "Category"},
		{LevelMagnitude, "Magnitude"},
		{LevelOperation, "Operation"},
		{LevelRelatedFact, "RelatedFact"},
		{LevelNearMiss, "NearMiss"},
		{BoundaryLevel(0), "BoundaryLevel(0)"},
		{BoundaryLevel(6), "BoundaryLevel(6)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.String())
	}
}

func TestBoundaryLevel_IsValid(t *testing.T) {
	assert.False(t, BoundaryLevel(0).IsValid())
	for l := LevelCategory; l <= LevelNearMiss; l++ {
		assert.True(t, l.IsValid())
	}
	assert.False(t, BoundaryLevel(6).IsValid())
}

func TestBoundaryLevel_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(LevelRelatedFact)
	require.NoError(t, err)
	assert.Equal(t, `"RelatedFact"`, string(data))

	var l BoundaryLevel
	require.NoError(t, json.Unmarshal(data, &l))
	assert.Equal(t, LevelRelatedFact, l)
}

func TestBoundaryLevel_JSONInvalid(t *testing.T) {
	_, err := json.Marshal(BoundaryLevel(9))
	require.Error(t, err)

	var l BoundaryLevel
	err = json.Unmarshal([]byte(`"Level9"`), &l)
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestPathStatus_String(t *testing.T) {
	assert.Equal(t, "active", StatusActive.String())
	assert.Equal(t, "preparing", StatusPreparing.String())
	assert.Equal(t, "PathStatus(3)", PathStatus(3).String())
}

func TestPathStatus_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, `"preparing"`, string(data))

	var s PathStatus
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, StatusPreparing, s)

	err = json.Unmarshal([]byte(`"dormant"`), &s)
	require.ErrorIs(t, err, ErrInvalidStatus)
}
