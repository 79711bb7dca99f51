// Package kernelerr is the kernel's single error taxonomy: every subsystem
// (DAG scheduler, Forge orchestrator, tool router, permission manager, MCP,
// exec runner) classifies its failures into one of a fixed set of Kinds so
// callers get consistent, safe-to-display behavior regardless of which
// layer produced the error.
package kernelerr

import (
	"context"
	"errors"
	"fmt"

	"github.com/cortexsh/cortexrun/internal/dagtask"
	"github.com/cortexsh/cortexrun/internal/forge"
	"github.com/cortexsh/cortexrun/internal/permission"
	"github.com/cortexsh/cortexrun/pkg/providers"
)

// Kind is the fixed classification every kernel error reduces to.
type Kind string

const (
	InvalidInput     Kind = "invalid_input"
	NotFound         Kind = "not_found"
	Conflict         Kind = "conflict"
	Timeout          Kind = "timeout"
	Cancelled        Kind = "cancelled"
	PermissionDenied Kind = "permission_denied"
	Auth             Kind = "auth"
	Provider         Kind = "provider"
	IO               Kind = "io"
	Internal         Kind = "internal"
)

// Error is the kernel-wide error envelope: a Kind, a short message safe to
// show a user, the tool or rule that produced it where known, whether a
// caller may retry, and the original error for logging/Unwrap.
type Error struct {
	Kind      Kind
	Message   string
	Rule      string // matching permission rule or tool name, when known
	Retriable bool
	Wrapped   error
}

func (e *Error) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Rule, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// New builds a kernelerr.Error directly, for sites that already know their
// own classification (bad arguments, empty prompts, oversized sessions)
// rather than classifying an upstream error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Retriable: kind == Provider}
}

// WithRule returns a copy of e with Rule set, e.g. the permission pattern
// or tool name that decided the outcome.
func (e *Error) WithRule(rule string) *Error {
	c := *e
	c.Rule = rule
	return &c
}

// Classify reduces an arbitrary error from any kernel subsystem into a
// single Kind. Errors already wrapped as *kernelerr.Error pass through
// unchanged. Unrecognized errors classify as Internal, since an
// unclassified failure is by definition an invariant the caller didn't
// anticipate.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ke *Error
	if errors.As(err, &ke) {
		return ke
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Kind: Cancelled, Message: "operation was cancelled", Wrapped: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Timeout, Message: "operation timed out", Retriable: false, Wrapped: err}
	}

	switch {
	case errors.Is(err, dagtask.ErrTaskNotFound):
		return &Error{Kind: NotFound, Message: "no such task in this run", Wrapped: err}
	case errors.Is(err, dagtask.ErrCycleWouldForm), errors.Is(err, dagtask.ErrCycleDetected), errors.Is(err, dagtask.ErrDependencyExist):
		return &Error{Kind: Conflict, Message: "that dependency would form a cycle", Wrapped: err}
	case errors.Is(err, dagtask.ErrCancelled):
		return &Error{Kind: Cancelled, Message: "task run was cancelled", Wrapped: err}
	case errors.Is(err, dagtask.ErrTimeout):
		return &Error{Kind: Timeout, Message: "task run exceeded its global timeout", Wrapped: err}
	}

	var fileConflict *dagtask.FileConflictError
	if errors.As(err, &fileConflict) {
		return &Error{Kind: Conflict, Message: fileConflict.Error(), Wrapped: err}
	}
	var deadlock *dagtask.DeadlockError
	if errors.As(err, &deadlock) {
		return &Error{Kind: Internal, Message: deadlock.Error(), Wrapped: err}
	}
	var taskFailed *dagtask.TaskFailedErr
	if errors.As(err, &taskFailed) {
		return &Error{Kind: Internal, Message: taskFailed.Error(), Wrapped: err}
	}

	var circular *forge.CircularDependencyError
	if errors.As(err, &circular) {
		return &Error{Kind: Conflict, Message: circular.Error(), Wrapped: err}
	}
	var unsatisfied *forge.DependenciesNotSatisfiedError
	if errors.As(err, &unsatisfied) {
		return &Error{Kind: Internal, Message: unsatisfied.Error(), Wrapped: err}
	}
	var forgeTimeout *forge.TimeoutError
	if errors.As(err, &forgeTimeout) {
		return &Error{Kind: Timeout, Message: forgeTimeout.Error(), Wrapped: err}
	}

	var failover *providers.FailoverError
	if errors.As(err, &failover) {
		return classifyFailover(failover)
	}

	return &Error{Kind: Internal, Message: err.Error(), Wrapped: err}
}

// classifyFailover maps a provider FailoverError onto the kernel taxonomy:
// a Kind, a user-facing message, and Retriable from the FailoverError.
func classifyFailover(fe *providers.FailoverError) *Error {
	e := &Error{Wrapped: fe, Retriable: fe.IsRetriable()}
	switch fe.Reason {
	case providers.FailoverAuth:
		e.Kind = Auth
		e.Message = "could not authenticate with the AI provider"
	case providers.FailoverRateLimit, providers.FailoverOverloaded:
		e.Kind = Provider
		e.Message = "the AI provider is rate-limiting or overloaded; try again shortly"
	case providers.FailoverBilling:
		e.Kind = Provider
		e.Message = "the AI provider rejected the request due to billing"
	case providers.FailoverTimeout:
		e.Kind = Timeout
		e.Message = "the request to the AI provider timed out"
	case providers.FailoverModelInvalid:
		e.Kind = InvalidInput
		e.Message = fmt.Sprintf("model %q is not valid for this provider", fe.Model)
	case providers.FailoverFormat:
		e.Kind = InvalidInput
		e.Message = "the request was rejected as malformed"
	default:
		e.Kind = Provider
		e.Message = "the AI provider returned an unrecognized error"
	}
	return e
}

// FromPermission builds a kernelerr.Error for a denied permission check,
// carrying the matching rule the way spec's taxonomy requires
// ("PermissionDenied — from permission manager; carries the matching rule").
func FromPermission(result permission.CheckResult) *Error {
	rule := ""
	if result.Permission != nil {
		rule = result.Permission.Pattern
	}
	reason := result.Reason
	if reason == "" {
		reason = "denied by permission policy"
	}
	return &Error{Kind: PermissionDenied, Message: reason, Rule: rule}
}
