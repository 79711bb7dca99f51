// Package forge implements the validation-agent orchestrator: a
// specialization of the task DAG scheduler where every node is a
// validation agent that produces a ValidationResult instead of an
// arbitrary task output, and a failed dependency can optionally veto a
// dependent agent (require_dependencies_pass) instead of merely cascading
// a skip.
package forge

import "time"

// Severity orders a Finding from least to most serious.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Finding is one immutable observation emitted by a validation agent.
type Finding struct {
	AgentId  string   `json:"agent_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Location string   `json:"location,omitempty"`
}

// Status summarizes a ValidationResult. NewValidationResult derives it from
// the result's findings (see StatusFromFindings); the one exception is the
// orchestrator's require_dependencies_pass skip, which sets Warning on a
// result with no findings.
type Status int

const (
	Pass Status = iota
	Warning
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warning:
		return "warning"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// StatusFromFindings derives a ValidationResult's status from its findings:
// any Critical or Error finding fails the result, any remaining Warning
// finding downgrades it to Warning, and no findings (or Info-only) pass.
func StatusFromFindings(findings []Finding) Status {
	status := Pass
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical, SeverityError:
			return Fail
		case SeverityWarning:
			status = Warning
		}
	}
	return status
}

// ValidationResult is what one agent produces for one run.
type ValidationResult struct {
	AgentId      string    `json:"agent_id"`
	Status       Status    `json:"status"`
	Findings     []Finding `json:"findings"`
	RulesApplied []string  `json:"rules_applied"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewValidationResult builds a result with Status derived from findings.
func NewValidationResult(agentID string, findings []Finding, rulesApplied []string) ValidationResult {
	return ValidationResult{
		AgentId:      agentID,
		Status:       StatusFromFindings(findings),
		Findings:     findings,
		RulesApplied: rulesApplied,
		Timestamp:    time.Now(),
	}
}

// AgentConfig describes one validation agent's place in the Forge DAG.
type AgentConfig struct {
	Id                      string   `json:"id"`
	DependsOn               []string `json:"depends_on,omitempty"`
	Enabled                 bool     `json:"enabled"`
	Priority                int      `json:"priority"`
	RequireDependenciesPass bool     `json:"require_dependencies_pass"`
}

// Options controls orchestration behavior.
type Options struct {
	MaxParallel    int
	FailFast       bool
	TimeoutSeconds int
}

// DefaultOptions mirrors the teacher-adjacent default: four-way
// parallelism, no fail-fast, a ten-minute ceiling.
func DefaultOptions() Options {
	return Options{MaxParallel: 4, FailFast: false, TimeoutSeconds: 600}
}

// Response is the composed outcome of one orchestrator run.
type Response struct {
	Results         []ValidationResult `json:"results"`
	Errors          []string           `json:"errors,omitempty"`
	ExecutionTimeMs int64              `json:"execution_time_ms"`
}

// IsSuccess reports whether no produced result has status Fail and no
// agent errored out during execution. Warning results count as success.
func (r Response) IsSuccess() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, res := range r.Results {
		if res.Status == Fail {
			return false
		}
	}
	return true
}
