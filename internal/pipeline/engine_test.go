package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/collision-cli/internal/metrics"
)

// mockStage implements Stage for testing.
type mockStage struct {
	name    string
	rows    int64
	err     error
	ran     bool
	onRun   func()
	nilBody bool
}

func (m *mockStage) Name() string { return m.name }
func (m *mockStage) Run(ctx context.Context, env *Env) (*Result, error) {
	m.ran = true
	if m.onRun != nil {
		m.onRun()
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.nilBody {
		return nil, nil
	}
	return &Result{Records: m.rows}, nil
}

func testRegistry(stages ...*mockStage) *Registry {
	r := &Registry{stages: make(map[string]Stage)}
	for _, s := range stages {
		r.Register(s)
	}
	return r
}

func TestEngine_RunsAllInOrder(t *testing.T) {
	var order []string
	a := &mockStage{name: "a", rows: 3}
	b := &mockStage{name: "b", rows: 5}
	a.onRun = func() { order = append(order, "a") }
	b.onRun = func() { order = append(order, "b") }

	e := NewEngine(&Env{}, testRegistry(a, b))
	runs, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, order)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].Stage)
	assert.Equal(t, int64(3), runs[0].Result.Records)
	assert.Equal(t, int64(5), runs[1].Result.Records)
}

func TestEngine_StopsOnFirstError(t *testing.T) {
	a := &mockStage{name: "a", rows: 1}
	b := &mockStage{name: "b", err: errors.New("boom")}
	c := &mockStage{name: "c"}

	e := NewEngine(&Env{}, testRegistry(a, b, c))
	runs, err := e.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage b")
	assert.Contains(t, err.Error(), "boom")

	assert.Len(t, runs, 1)
	assert.True(t, b.ran)
	assert.False(t, c.ran)
}

func TestEngine_SelectedSubset(t *testing.T) {
	a := &mockStage{name: "a"}
	b := &mockStage{name: "b"}

	e := NewEngine(&Env{}, testRegistry(a, b))
	runs, err := e.Run(context.Background(), []string{"b"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.False(t, a.ran)
	assert.True(t, b.ran)
}

func TestEngine_UnknownStage(t *testing.T) {
	e := NewEngine(&Env{}, testRegistry(&mockStage{name: "a"}))
	_, err := e.Run(context.Background(), []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestEngine_CancelledContext(t *testing.T) {
	a := &mockStage{name: "a"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(&Env{}, testRegistry(a))
	_, err := e.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, a.ran)
}

func TestEngine_NilResultIsEmpty(t *testing.T) {
	e := NewEngine(&Env{}, testRegistry(&mockStage{name: "a", nilBody: true}))
	runs, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(0), runs[0].Result.Records)
}

func TestEngine_RecordsStageMetrics(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	a := &mockStage{name: "a"}
	b := &mockStage{name: "b", err: errors.New("boom")}
	e := NewEngine(&Env{Metrics: m}, testRegistry(a, b))
	_, err = e.Run(context.Background(), nil)
	require.Error(t, err)

	n, err := testutil.GatherAndCount(m.Registry(), "collision_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
