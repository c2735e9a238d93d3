package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/chameleon-db/chameleon-mock/pkg/mock"
)

// Outcome of a single step
type Outcome string

const (
	OutcomeHit   Outcome = "hit"
	OutcomeMiss  Outcome = "miss"
	OutcomeError Outcome = "error"
)

// StepResult is the outcome of one step
type StepResult struct {
	Index    int
	Label    string
	Kind     string
	Outcome  Outcome
	Matched  int
	Rows     []engine.Row
	Duration time.Duration
	Err      error
}

// Summary is the outcome of a whole script
type Summary struct {
	Script     string
	Results    []StepResult
	Unreceived []mock.SpecReport
	Duration   time.Duration
}

// Counts returns hits, misses and errors
func (s *Summary) Counts() (hits, misses, errs int) {
	for _, r := range s.Results {
		switch r.Outcome {
		case OutcomeHit:
			hits++
		case OutcomeMiss:
			misses++
		case OutcomeError:
			errs++
		}
	}
	return hits, misses, errs
}

// Failed reports whether any step errored, or, when strict, whether any
// step missed or any expectation was never received
func (s *Summary) Failed(strict bool) bool {
	_, misses, errs := s.Counts()
	if errs > 0 {
		return true
	}
	return strict && (misses > 0 || len(s.Unreceived) > 0)
}

// Runner plays scripts through an engine backed by a mock provider
type Runner struct {
	eng      *engine.Engine
	provider *mock.Provider
}

// NewRunner attaches the provider to the engine
func NewRunner(eng *engine.Engine, provider *mock.Provider) *Runner {
	eng.UseProvider(provider)
	return &Runner{eng: eng, provider: provider}
}

// Run executes every step in order. Step failures are recorded in the
// summary; only a cancelled context stops the run early.
func (r *Runner) Run(ctx context.Context, script *Script) (*Summary, error) {
	summary := &Summary{Script: script.Name}
	started := time.Now()

	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		before := r.received()
		stepStart := time.Now()
		rows, err := r.runStep(ctx, step)

		result := StepResult{
			Index:    i + 1,
			Label:    step.Label(),
			Kind:     step.Kind(),
			Rows:     rows,
			Matched:  r.received() - before,
			Duration: time.Since(stepStart),
		}

		switch {
		case errors.Is(err, engine.ErrNoResponse):
			result.Outcome = OutcomeMiss
		case err != nil:
			result.Outcome = OutcomeError
			result.Err = err
		case step.Kind() == "batch" && result.Matched < len(step.Batch):
			// unmatched batch items are silent, so count them here
			result.Outcome = OutcomeMiss
		default:
			result.Outcome = OutcomeHit
		}
		summary.Results = append(summary.Results, result)
	}

	for _, rep := range r.provider.Report() {
		if rep.Received == 0 {
			summary.Unreceived = append(summary.Unreceived, rep)
		}
	}
	summary.Duration = time.Since(started)
	return summary, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) ([]engine.Row, error) {
	switch step.Kind() {
	case "default_values":
		row, err := r.eng.DefaultValues(ctx, step.DefaultValues)
		if err != nil {
			return nil, err
		}
		return []engine.Row{row}, nil

	case "select":
		qb := r.eng.Query(step.Select.Entity)
		if err := step.Select.apply(qb); err != nil {
			return nil, err
		}
		result, err := qb.Execute(ctx)
		if err != nil {
			return nil, err
		}
		return result.Rows, nil

	case "batch":
		queries := make([]engine.BatchQuery, 0, len(step.Batch))
		for _, m := range step.Batch {
			q, err := m.query()
			if err != nil {
				return nil, err
			}
			queries = append(queries, q)
		}
		_, err := r.eng.Batch().Add(queries...).Execute(ctx)
		return nil, err
	}
	return nil, fmt.Errorf("step %q has no request", step.Label())
}

func (r *Runner) received() int {
	total := 0
	for _, rep := range r.provider.Report() {
		total += rep.Received
	}
	return total
}
