package chain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gaurav-prasanna/recipepipe/core/chain"
	"github.com/gaurav-prasanna/recipepipe/core/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffective(t *testing.T) {
	tests := []struct {
		name    string
		order   []string
		enabled []string
		want    []string
	}{
		{"filters by enabled", []string{"a", "b", "c"}, []string{"c", "a"}, []string{"a", "c"}},
		{"drops duplicates", []string{"a", "a", "b"}, []string{"a", "b"}, []string{"a", "b"}},
		{"enabled but not ordered is skipped", []string{"a"}, []string{"a", "z"}, []string{"a"}},
		{"nothing enabled", []string{"a", "b"}, nil, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, chain.Effective(tc.order, tc.enabled))
		})
	}
}

func step(name string, calls *[]string, err error) chain.Step[string] {
	return chain.Step[string]{
		Name: name,
		Run: func(context.Context) (string, error) {
			*calls = append(*calls, name)
			if err != nil {
				return "", err
			}
			return "from " + name, nil
		},
	}
}

func TestRunStopsAtFirstSuccess(t *testing.T) {
	var calls []string
	steps := []chain.Step[string]{
		step("one", &calls, errors.New("no")),
		step("two", &calls, nil),
		step("three", &calls, nil),
	}

	v, name, err := chain.Run(context.Background(), chain.Runner{Policy: retry.Once()}, steps)
	require.NoError(t, err)
	assert.Equal(t, "from two", v)
	assert.Equal(t, "two", name)
	assert.Equal(t, []string{"one", "two"}, calls)
}

func TestRunRetriesEachStepBeforeMovingOn(t *testing.T) {
	var calls []string
	var slept []time.Duration
	policy := retry.FromMillis(3, 5)
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	steps := []chain.Step[string]{
		step("a", &calls, errors.New("a down")),
		step("b", &calls, errors.New("b down")),
	}

	_, _, err := chain.Run(context.Background(), chain.Runner{Label: "providers", Policy: policy}, steps)

	var exhausted *chain.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Failures, 2)
	assert.Equal(t, []string{"a", "a", "a", "b", "b", "b"}, calls)
	assert.Equal(t, []time.Duration{
		5 * time.Millisecond, 10 * time.Millisecond,
		5 * time.Millisecond, 10 * time.Millisecond,
	}, slept)
	assert.Contains(t, err.Error(), "all providers failed:\na: ")
	assert.Contains(t, err.Error(), "\nb: ")
}

func TestRunEmpty(t *testing.T) {
	_, _, err := chain.Run[string](context.Background(), chain.Runner{}, nil)
	assert.ErrorIs(t, err, chain.ErrEmpty)
}

func TestRunCancelledContextReturnsNoPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	steps := []chain.Step[string]{
		{Name: "slow", Run: func(context.Context) (string, error) {
			calls = append(calls, "slow")
			cancel()
			return "", errors.New("interrupted")
		}},
		step("next", &calls, nil),
	}

	v, _, err := chain.Run(ctx, chain.Runner{Policy: retry.Once()}, steps)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, v)
	assert.Equal(t, []string{"slow"}, calls)
}
