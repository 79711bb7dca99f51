package forge

import "fmt"

// CircularDependencyError is returned when the enabled agent set does not
// form a DAG: build_execution_order's Kahn's-algorithm pass consumed fewer
// agents than exist, leaving a cycle among the rest.
type CircularDependencyError struct {
	Remaining []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("forge: circular dependency among agents: %v", e.Remaining)
}

// DependenciesNotSatisfiedError is returned when the orchestrator finds
// itself with Pending agents but nothing Running and nothing Ready — a
// dependency graph bug that build_execution_order's own cycle check should
// normally catch first, but is reported defensively here too.
type DependenciesNotSatisfiedError struct {
	AgentId string
	Missing []string
}

func (e *DependenciesNotSatisfiedError) Error() string {
	return fmt.Sprintf("forge: agent %q has unsatisfied dependencies: %v", e.AgentId, e.Missing)
}

// TimeoutError is returned when the global orchestration timeout elapses
// before every agent reaches a terminal state.
type TimeoutError struct {
	Seconds int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("forge: orchestration timeout exceeded after %ds", e.Seconds)
}
