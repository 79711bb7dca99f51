package dagtask

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by TaskDag and Scheduler operations. Wrap with
// errors.Is to check for a specific one; the typed errors below (Deadlock,
// FileConflict, TaskFailedErr) carry additional data.
var (
	ErrTaskNotFound    = errors.New("dagtask: task not found")
	ErrCycleWouldForm  = errors.New("dagtask: adding that dependency would form a cycle")
	ErrCycleDetected   = errors.New("dagtask: graph is not a DAG")
	ErrCancelled       = errors.New("dagtask: execution cancelled")
	ErrTimeout         = errors.New("dagtask: global timeout elapsed")
	ErrDependencyExist = errors.New("dagtask: dependency already exists")
)

// DeadlockError is returned when execute_all finds no Ready or Running
// tasks while Pending ones remain — every remaining task is blocked on a
// dependency that will never resolve.
type DeadlockError struct {
	Pending []TaskId
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("dagtask: deadlock, %d task(s) pending with unresolvable dependencies", len(e.Pending))
}

// FileConflictError is returned when two tasks selected for the same
// execution batch declare the same affected file.
type FileConflictError struct {
	Task1 TaskId
	Task2 TaskId
	File  string
}

func (e *FileConflictError) Error() string {
	return fmt.Sprintf("dagtask: tasks %d and %d both affect file %q", e.Task1, e.Task2, e.File)
}

// TaskFailedErr is returned by execute_all when fail_fast is set and a task
// in the batch fails.
type TaskFailedErr struct {
	TaskId TaskId
	Reason string
}

func (e *TaskFailedErr) Error() string {
	return fmt.Sprintf("dagtask: task %d failed: %s", e.TaskId, e.Reason)
}
