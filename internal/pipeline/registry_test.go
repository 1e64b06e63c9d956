package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_PipelineOrder(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{StageClean, StageFeatures, StageLoad, StageTrain}, r.Names())
}

func TestRegistry_SelectKeepsPipelineOrder(t *testing.T) {
	r := NewRegistry()
	got, err := r.Select([]string{StageTrain, StageClean})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, StageClean, got[0].Name())
	assert.Equal(t, StageTrain, got[1].Name())
}

func TestRegistry_SelectEmptyReturnsAll(t *testing.T) {
	got, err := NewRegistry().Select(nil)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	s, err := r.Get(StageLoad)
	require.NoError(t, err)
	assert.Equal(t, StageLoad, s.Name())

	_, err = r.Get("bogus")
	assert.Error(t, err)
}

func TestRegistry_RegisterReplaceKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockStage{name: StageClean})
	assert.Equal(t, []string{StageClean, StageFeatures, StageLoad, StageTrain}, r.Names())
	s, err := r.Get(StageClean)
	require.NoError(t, err)
	assert.IsType(t, &mockStage{}, s)
}
