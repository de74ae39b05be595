package pidl

import (
	"fmt"
	"strings"

	pidlerrors "github.com/havenworks/pidl/pkg/errors"
)

// Plan is the wave-grouped topological layering produced by Explain. Each
// entry is a sub-wave of task names, already capped at the pipeline's
// concurrency limit; Pipeline.Run executes them in order.
type Plan [][]string

// buildPlan computes the plan by iterative layering: repeatedly compute the
// ready set (tasks whose prerequisites are all seen), split it into
// sub-waves of at most concurrency tasks (concurrency==0 means one
// unbounded sub-wave), append each sub-wave to the plan, and add every name
// from this round to seen before the next iteration. Ties within a ready
// set are broken by task registration order (order), not sorted name, so
// the plan is stable across runs of the same pipeline.
func buildPlan(tasks map[string]*Task, order []string, concurrency int) (Plan, error) {
	seen := make(map[string]bool, len(tasks))
	var plan Plan

	for {
		ready := make([]string, 0)
		for _, name := range order {
			if seen[name] {
				continue
			}
			t := tasks[name]
			if t.Ready(seen) {
				ready = append(ready, name)
			}
		}

		if len(ready) == 0 {
			break
		}

		subwaves := splitConcurrency(ready, concurrency)
		plan = append(plan, subwaves...)

		for _, name := range ready {
			seen[name] = true
		}
	}

	if len(seen) != len(tasks) {
		var unreachable []string
		for _, name := range order {
			if !seen[name] {
				unreachable = append(unreachable, name)
			}
		}
		return nil, pidlerrors.NewRuntimeError(
			fmt.Sprintf("unreachable tasks (missing or cyclic prerequisites): %s", strings.Join(unreachable, ", ")),
			nil,
		)
	}

	return plan, nil
}

// splitConcurrency splits ready (already in insertion order) into sub-waves
// of at most max tasks each. max<=0 means a single unbounded sub-wave.
func splitConcurrency(ready []string, max int) Plan {
	if max <= 0 {
		return Plan{append([]string(nil), ready...)}
	}

	var out Plan
	for i := 0; i < len(ready); i += max {
		end := i + max
		if end > len(ready) {
			end = len(ready)
		}
		out = append(out, append([]string(nil), ready[i:end]...))
	}
	return out
}

// String renders a human-readable summary of the plan, one line per wave.
func (p Plan) String() string {
	var b strings.Builder
	for i, wave := range p {
		fmt.Fprintf(&b, "wave %d (%d tasks): %s\n", i, len(wave), strings.Join(wave, ", "))
	}
	return b.String()
}
