package flow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-e2e/flow"
)

func TestRunner_OutputsThreadBetweenStages(t *testing.T) {
	rt := flow.NewRuntime("", nil, flow.Outputs{"seed": "s1"})

	var got string
	runner := flow.NewRunner(rt, []flow.Stage{
		{
			Name:  "producer",
			Needs: []string{"seed"},
			Run: func(context.Context, *flow.Runtime) (flow.Outputs, error) {
				return flow.Outputs{"value": "v1"}, nil
			},
		},
		{
			Name:  "consumer",
			Needs: []string{"value"},
			Run: func(_ context.Context, rt *flow.Runtime) (flow.Outputs, error) {
				got, _ = rt.Output("value")
				return nil, nil
			},
		},
	})

	summary := runner.Run(context.Background())
	require.True(t, summary.OK())
	require.Equal(t, 2, summary.Passed)
	require.Equal(t, "v1", got)
}

func TestRunner_SkipsDescendantsOfFailure(t *testing.T) {
	rt := flow.NewRuntime("", nil, nil)

	runner := flow.NewRunner(rt, []flow.Stage{
		{
			Name: "broken",
			Run: func(context.Context, *flow.Runtime) (flow.Outputs, error) {
				return nil, errors.New("boom")
			},
		},
		{
			Name:  "dependent",
			Needs: []string{"value"},
			Run: func(context.Context, *flow.Runtime) (flow.Outputs, error) {
				t.Fatal("dependent stage must not run")
				return nil, nil
			},
		},
		{
			Name: "independent",
			Run: func(context.Context, *flow.Runtime) (flow.Outputs, error) {
				return nil, nil
			},
		},
	})

	summary := runner.Run(context.Background())
	require.False(t, summary.OK())
	require.Equal(t, 1, summary.Passed)
	require.Equal(t, 2, summary.Attempted, "skipped stages are not attempted")
	require.Len(t, summary.Results, 3)

	require.Equal(t, flow.StatusFailed, summary.Results[0].Status)
	require.Contains(t, summary.Results[0].Detail, "boom")
	require.Equal(t, flow.StatusSkipped, summary.Results[1].Status)
	require.Contains(t, summary.Results[1].Detail, "missing input value")
	require.Equal(t, flow.StatusPassed, summary.Results[2].Status)
}

func TestRunner_ConvertsPanicToFailure(t *testing.T) {
	rt := flow.NewRuntime("", nil, nil)

	runner := flow.NewRunner(rt, []flow.Stage{
		{
			Name: "panicky",
			Run: func(context.Context, *flow.Runtime) (flow.Outputs, error) {
				panic("unexpected")
			},
		},
		{
			Name: "after",
			Run: func(context.Context, *flow.Runtime) (flow.Outputs, error) {
				return nil, nil
			},
		},
	})

	summary := runner.Run(context.Background())
	require.Equal(t, flow.StatusFailed, summary.Results[0].Status)
	require.Contains(t, summary.Results[0].Detail, "panic")
	require.Equal(t, flow.StatusPassed, summary.Results[1].Status, "runner keeps going after a panic")
}

func TestStatus_String(t *testing.T) {
	require.Equal(t, "PASS", flow.StatusPassed.String())
	require.Equal(t, "FAIL", flow.StatusFailed.String())
	require.Equal(t, "SKIP", flow.StatusSkipped.String())
}
