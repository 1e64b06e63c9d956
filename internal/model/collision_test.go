package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounts_Totals(t *testing.T) {
	c := Counts{
		PersonsInjured: 1, PedestriansInjured: 2, CyclistInjured: 3, MotoristInjured: 4,
		PersonsKilled: 1, MotoristKilled: 1,
	}
	assert.Equal(t, 10, c.TotalInjuries())
	assert.Equal(t, 2, c.TotalDeaths())
}

func TestTimestamp_MarshalText(t *testing.T) {
	ts := Timestamp{time.Date(2020, 3, 15, 7, 30, 0, 0, time.UTC)}
	b, err := ts.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2020-03-15 07:30:00", string(b))

	b, err = Timestamp{}.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestTimestamp_UnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2020-03-15 07:30:00", time.Date(2020, 3, 15, 7, 30, 0, 0, time.UTC)},
		{"2020-03-15 07:30", time.Date(2020, 3, 15, 7, 30, 0, 0, time.UTC)},
		{"2020-03-15T07:30:00Z", time.Date(2020, 3, 15, 7, 30, 0, 0, time.UTC)},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, ts.UnmarshalText([]byte(tt.in)))
			assert.True(t, tt.want.Equal(ts.Time), "got %v", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, ts.UnmarshalText([]byte("not a date")))
}

func TestCleanCollision_Factors(t *testing.T) {
	c := CleanCollision{
		ContributingFactor1: "a", ContributingFactor2: "b", ContributingFactor3: "c",
		ContributingFactor4: "d", ContributingFactor5: "e",
	}
	assert.Equal(t, [5]string{"a", "b", "c", "d", "e"}, c.Factors())
}
