package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitLabelEncoder_SortsClasses(t *testing.T) {
	enc := FitLabelEncoder([]string{"Medium", "Low", "High", "Low"})
	assert.Equal(t, []string{"High", "Low", "Medium"}, enc.Classes)

	y, err := enc.Transform([]string{"Low", "High", "Medium"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2}, y)

	label, err := enc.Inverse(2)
	require.NoError(t, err)
	assert.Equal(t, "Medium", label)
}

func TestLabelEncoder_Errors(t *testing.T) {
	enc := FitLabelEncoder([]string{"Low"})

	_, err := enc.Transform([]string{"High"})
	assert.Error(t, err)

	_, err = enc.Inverse(1)
	assert.Error(t, err)
	_, err = enc.Inverse(-1)
	assert.Error(t, err)
}
