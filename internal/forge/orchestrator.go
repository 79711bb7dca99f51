package forge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Executor runs one validation agent and returns its result.
type Executor func(ctx context.Context, agentID string, cfg AgentConfig) (ValidationResult, error)

type agentState int

const (
	agentPending agentState = iota
	agentReady
	agentRunning
	agentCompleted
	agentFailed
	agentSkipped
)

func (s agentState) isTerminal() bool {
	return s == agentCompleted || s == agentFailed || s == agentSkipped
}

func (s agentState) isSuccess() bool {
	return s == agentCompleted
}

type tracker struct {
	config AgentConfig
	state  agentState
	result *ValidationResult
}

// Orchestrator runs a fixed set of validation agents respecting their
// depends_on edges, dispatching ready agents in waves up to MaxParallel.
type Orchestrator struct {
	agents  []AgentConfig
	options Options
}

// New builds an orchestrator over the enabled subset of agents.
func New(agents []AgentConfig, options Options) *Orchestrator {
	var enabled []AgentConfig
	for _, a := range agents {
		if a.Enabled {
			enabled = append(enabled, a)
		}
	}
	if options.MaxParallel <= 0 {
		options.MaxParallel = 1
	}
	return &Orchestrator{agents: enabled, options: options}
}

// GetExecutionOrder returns the topological run order without executing
// anything, or a *CircularDependencyError if the enabled agents don't form
// a DAG.
func (o *Orchestrator) GetExecutionOrder() ([]string, error) {
	return o.buildExecutionOrder()
}

// buildExecutionOrder runs Kahn's algorithm over the enabled agent set,
// breaking ties in the initial ready queue by priority (descending) then
// agent id (for determinism — Go map iteration order is randomized, same
// caveat as internal/permission's config-pattern sort).
func (o *Orchestrator) buildExecutionOrder() ([]string, error) {
	byID := make(map[string]AgentConfig, len(o.agents))
	for _, a := range o.agents {
		byID[a.Id] = a
	}

	inDegree := make(map[string]int, len(byID))
	dependents := make(map[string][]string)
	for id := range byID {
		inDegree[id] = 0
	}
	for _, a := range o.agents {
		for _, dep := range a.DependsOn {
			if _, ok := byID[dep]; ok {
				inDegree[a.Id]++
				dependents[dep] = append(dependents[dep], a.Id)
			}
		}
	}

	var queue []string
	for id, d := range inDegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool {
		pi, pj := byID[queue[i]].Priority, byID[queue[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return queue[i] < queue[j]
	})

	var result []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(result) != len(byID) {
		done := make(map[string]bool, len(result))
		for _, id := range result {
			done[id] = true
		}
		var remaining []string
		for id := range byID {
			if !done[id] {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, &CircularDependencyError{Remaining: remaining}
	}

	return result, nil
}

// Run executes every enabled agent, respecting dependencies, priority
// ordering within a wave, MaxParallel concurrency, require_dependencies_pass
// gating, FailFast, and the global TimeoutSeconds deadline.
func (o *Orchestrator) Run(ctx context.Context, executor Executor) (Response, error) {
	start := time.Now()

	if _, err := o.buildExecutionOrder(); err != nil {
		return Response{}, err
	}

	if o.options.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(o.options.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	trackers := make(map[string]*tracker, len(o.agents))
	for _, a := range o.agents {
		state := agentPending
		if len(a.DependsOn) == 0 {
			state = agentReady
		}
		trackers[a.Id] = &tracker{config: a, state: state}
	}

	var mu sync.Mutex
	var results []ValidationResult
	var errs []string
	processed := map[string]bool{}

	for len(processed) < len(trackers) {
		if ctx.Err() != nil {
			return o.finalize(results, errs, start), &TimeoutError{Seconds: o.options.TimeoutSeconds}
		}

		mu.Lock()
		var ready []string
		for id, t := range trackers {
			if !processed[id] && t.state == agentReady {
				ready = append(ready, id)
			}
		}
		sort.Slice(ready, func(i, j int) bool {
			pi, pj := trackers[ready[i]].config.Priority, trackers[ready[j]].config.Priority
			if pi != pj {
				return pi > pj
			}
			return ready[i] < ready[j]
		})
		if len(ready) > o.options.MaxParallel {
			ready = ready[:o.options.MaxParallel]
		}
		mu.Unlock()

		if len(ready) == 0 {
			mu.Lock()
			anyRunning := false
			for _, t := range trackers {
				if t.state == agentRunning {
					anyRunning = true
					break
				}
			}
			var pending []string
			if !anyRunning {
				for id, t := range trackers {
					if !processed[id] && t.state == agentPending {
						pending = append(pending, id)
					}
				}
			}
			mu.Unlock()

			if !anyRunning {
				if len(pending) > 0 {
					sort.Strings(pending)
					return o.finalize(results, errs, start), &DependenciesNotSatisfiedError{AgentId: pending[0], Missing: pending}
				}
				break
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		for _, id := range ready {
			mu.Lock()
			trackers[id].state = agentRunning
			mu.Unlock()
		}

		var wg sync.WaitGroup
		stop := false
		var stopMu sync.Mutex
		for _, id := range ready {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				shouldStop := o.runOne(ctx, id, trackers, &mu, executor, &results, &errs)
				if shouldStop {
					stopMu.Lock()
					stop = true
					stopMu.Unlock()
				}
			}(id)
		}
		wg.Wait()

		for _, id := range ready {
			processed[id] = true
		}

		mu.Lock()
		terminalIDs := map[string]bool{}
		for id, t := range trackers {
			if t.state.isTerminal() {
				terminalIDs[id] = true
			}
		}
		for _, t := range trackers {
			if t.state != agentPending {
				continue
			}
			depsMet := true
			for _, dep := range t.config.DependsOn {
				if !terminalIDs[dep] {
					depsMet = false
					break
				}
			}
			if depsMet {
				t.state = agentReady
			}
		}
		mu.Unlock()

		if stop {
			break
		}
	}

	return o.finalize(results, errs, start), nil
}

// runOne executes a single ready agent: it first checks require_dependencies_pass,
// skipping without calling executor if a dependency did not succeed, then
// records the result (or error) and reports whether fail-fast should stop
// the run.
func (o *Orchestrator) runOne(ctx context.Context, id string, trackers map[string]*tracker, mu *sync.Mutex, executor Executor, results *[]ValidationResult, errs *[]string) bool {
	mu.Lock()
	t := trackers[id]
	cfg := t.config
	mu.Unlock()

	if cfg.RequireDependenciesPass {
		mu.Lock()
		for _, dep := range cfg.DependsOn {
			if dt, ok := trackers[dep]; ok && !dt.state.isSuccess() {
				t.state = agentSkipped
				skipped := NewValidationResult(id, nil, nil)
				skipped.Status = Warning
				t.result = &skipped
				mu.Unlock()
				return false
			}
		}
		mu.Unlock()
	}

	result, err := executor(ctx, id, cfg)
	if err != nil {
		mu.Lock()
		*errs = append(*errs, fmt.Sprintf("agent %q error: %v", id, err))
		t.state = agentFailed
		mu.Unlock()
		return o.options.FailFast
	}

	mu.Lock()
	*results = append(*results, result)
	if result.Status == Fail {
		t.state = agentFailed
	} else {
		t.state = agentCompleted
	}
	t.result = &result
	mu.Unlock()

	return result.Status == Fail && o.options.FailFast
}

func (o *Orchestrator) finalize(results []ValidationResult, errs []string, start time.Time) Response {
	sort.Slice(results, func(i, j int) bool { return results[i].AgentId < results[j].AgentId })
	return Response{
		Results:         results,
		Errors:          errs,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}
