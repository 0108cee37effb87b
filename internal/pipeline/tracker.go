package pipeline

import (
	"context"
	"fmt"
	"time"
)

// stageFunc is one pipeline stage. Stages signal failure through the state,
// never by returning an error or letting a panic escape.
type stageFunc func(ctx context.Context, st *State)

// runStage wraps a stage with timing instrumentation and the panic
// containment the stage contract requires. It records duration and outcome
// under the stage's key and leaves the stage's own state writes untouched.
func (p *Pipeline) runStage(ctx context.Context, st *State, stage Stage, fn stageFunc) {
	start := time.Now()

	func() {
		defer func() {
			if r := recover(); r != nil {
				st.fail(KindInternal, fmt.Errorf("stage %s panicked: %v", stage, r))
			}
		}()
		fn(ctx, st)
	}()

	elapsed := time.Since(start)
	outcome := "success"
	if st.Failed() {
		outcome = "failed"
	}
	st.Metrics[stage] = StageMetric{DurationMs: elapsed.Milliseconds(), Outcome: outcome}

	if p.metrics != nil {
		p.metrics.ObserveStage(string(stage), elapsed, outcome == "success")
	}
	p.log.WithRun(st.RunID).WithField("stage", stage).
		WithField("duration_ms", elapsed.Milliseconds()).
		WithField("outcome", outcome).
		Info("stage finished")
}

// buildReport aggregates the per-stage metrics into the final report. It is
// invoked only for completed runs; failed runs keep their partial metrics
// map but no synthesized report.
func buildReport(st *State) *PerformanceReport {
	report := &PerformanceReport{StageCount: len(st.Metrics)}
	for _, m := range st.Metrics {
		report.TotalDurationMs += m.DurationMs
		if m.Outcome == "success" {
			report.Successes++
		} else {
			report.Failures++
		}
	}
	return report
}
