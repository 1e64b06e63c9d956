package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/collision-cli/internal/model"
)

func severityFixture(low, medium, high int) []model.Collision {
	var out []model.Collision
	for i := 0; i < low; i++ {
		out = append(out, model.Collision{SeverityCategory: model.SeverityLow, SeverityScore: i % 5})
	}
	for i := 0; i < medium; i++ {
		out = append(out, model.Collision{SeverityCategory: model.SeverityMedium, SeverityScore: 5})
	}
	for i := 0; i < high; i++ {
		out = append(out, model.Collision{SeverityCategory: model.SeverityHigh, SeverityScore: 11})
	}
	return out
}

func TestDownsample_BalancesMajority(t *testing.T) {
	in := severityFixture(100, 12, 3)
	orig := append([]model.Collision(nil), in...)

	out := Downsample(in, model.SeverityLow, DefaultSeed)

	counts := CategoryCounts(out)
	assert.Equal(t, 15, counts[model.SeverityLow])
	assert.Equal(t, counts[model.SeverityLow], counts[model.SeverityMedium]+counts[model.SeverityHigh])
	assert.Equal(t, orig, in, "input must not be modified")

	for i := 0; i < 15; i++ {
		assert.Equal(t, model.SeverityLow, out[i].SeverityCategory)
	}
	for i := 15; i < len(out); i++ {
		assert.NotEqual(t, model.SeverityLow, out[i].SeverityCategory)
	}
}

func TestDownsample_Deterministic(t *testing.T) {
	in := severityFixture(50, 5, 5)
	for i := range in {
		in[i].LocationGrid = string(rune('a' + i%26))
		in[i].SeverityScore = i
	}
	a := Downsample(in, model.SeverityLow, 7)
	b := Downsample(in, model.SeverityLow, 7)
	assert.Equal(t, a, b)
}

func TestDownsample_MajoritySmallerThanRest(t *testing.T) {
	out := Downsample(severityFixture(2, 5, 5), model.SeverityLow, DefaultSeed)
	counts := CategoryCounts(out)
	assert.Equal(t, 2, counts[model.SeverityLow])
	assert.Len(t, out, 12)
}

func TestDownsample_Empty(t *testing.T) {
	out := Downsample(nil, model.SeverityLow, DefaultSeed)
	require.NotNil(t, out)
	assert.Empty(t, out)
}
