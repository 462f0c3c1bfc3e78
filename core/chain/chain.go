// Package chain runs named alternatives in order until one succeeds.
// The same runner drives the structured extractor chain and the conversion
// provider chain; only the retry policy differs.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaurav-prasanna/recipepipe/core/retry"
	"github.com/gaurav-prasanna/recipepipe/logger"
)

// ErrEmpty is returned when there is nothing to run.
var ErrEmpty = errors.New("chain has no steps")

// Effective returns order filtered by membership in enabled. Order is
// preserved and duplicates are dropped.
func Effective(order, enabled []string) []string {
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[name] = true
	}
	seen := make(map[string]bool, len(order))
	out := make([]string, 0, len(order))
	for _, name := range order {
		if !allowed[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Step is one named alternative.
type Step[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Failure is the final error of one step.
type Failure struct {
	Name string
	Err  error
}

// ExhaustedError reports that every step failed.
type ExhaustedError struct {
	Label    string
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	lines := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		lines = append(lines, fmt.Sprintf("%s: %v", f.Name, f.Err))
	}
	label := e.Label
	if label == "" {
		label = "steps"
	}
	return fmt.Sprintf("all %s failed:\n%s", label, strings.Join(lines, "\n"))
}

// Unwrap exposes each step error.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Runner holds the settings for a chain run.
type Runner struct {
	// Label names the alternatives in logs and errors ("providers").
	Label  string
	Policy retry.Policy
	Log    logger.Logger
}

// Run tries steps strictly in order, each under the runner's retry policy,
// and returns the first successful value with the step name. Steps never
// run in parallel. A cancelled context stops the chain immediately.
func Run[T any](ctx context.Context, r Runner, steps []Step[T]) (T, string, error) {
	var zero T
	if len(steps) == 0 {
		return zero, "", ErrEmpty
	}
	log := r.Log
	if log == nil {
		log = logger.NewNop()
	}

	failures := make([]Failure, 0, len(steps))
	for _, step := range steps {
		var value T
		start := time.Now()
		err := retry.Do(ctx, r.Policy, func(ctx context.Context, attempt int) error {
			log.Debug("Attempting step",
				logger.String("chain", r.Label),
				logger.String("step", step.Name),
				logger.Int("attempt", attempt),
				logger.Int("max_attempts", r.Policy.MaxAttempts()),
			)
			v, err := step.Run(ctx)
			if err != nil {
				return err
			}
			value = v
			return nil
		})
		if err == nil {
			log.Info("Step succeeded",
				logger.String("chain", r.Label),
				logger.String("step", step.Name),
				logger.Duration("duration", time.Since(start)),
			)
			return value, step.Name, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, "", ctxErr
		}

		log.Debug("Step failed",
			logger.String("chain", r.Label),
			logger.String("step", step.Name),
			logger.Error(err),
		)
		failures = append(failures, Failure{Name: step.Name, Err: err})
	}

	return zero, "", &ExhaustedError{Label: r.Label, Failures: failures}
}
