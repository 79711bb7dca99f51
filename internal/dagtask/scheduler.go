package dagtask

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Executor runs a single task and reports its outcome.
type Executor func(ctx context.Context, task Task) (result string, err error)

// SchedulerConfig controls execute_all's behavior.
type SchedulerConfig struct {
	MaxParallel        int
	CheckFileConflicts bool
	FailFast           bool
	PerTaskTimeout     time.Duration
	PersistInterval    time.Duration
	RunID              string
	Store              TaskStore
}

// DefaultSchedulerConfig returns sane defaults: four-way parallelism, file
// conflict checking on, no fail-fast, a generous per-task timeout, and an
// in-memory store.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxParallel:        4,
		CheckFileConflicts: true,
		FailFast:           false,
		PerTaskTimeout:     10 * time.Minute,
		PersistInterval:    0,
		RunID:              "default",
		Store:              NewMemoryStore(),
	}
}

// Scheduler runs a TaskDag to completion via execute_all.
type Scheduler struct {
	dag         *TaskDag
	cfg         SchedulerConfig
	lastPersist time.Time
}

func NewScheduler(dag *TaskDag, cfg SchedulerConfig) *Scheduler {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	return &Scheduler{dag: dag, cfg: cfg}
}

// ExecuteAll runs the DAG to completion, respecting ctx for both
// cancellation and a global deadline. It implements the repeat-until-done
// loop: collect ready tasks, check for deadlock or file conflicts, run a
// bounded-parallelism wave with per-task timeouts, apply results, persist,
// and loop.
func (s *Scheduler) ExecuteAll(ctx context.Context, exec Executor) error {
	for {
		if err := ctx.Err(); err != nil {
			s.dag.CancelRunning()
			s.persist()
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ErrCancelled
		}

		ready := s.dag.ReadyTasksByPriority()
		if len(ready) > s.cfg.MaxParallel {
			ready = ready[:s.cfg.MaxParallel]
		}

		if len(ready) == 0 {
			progress := s.dag.Progress()
			if progress.Running == 0 {
				if progress.Pending > 0 {
					s.persist()
					return &DeadlockError{Pending: s.pendingIds()}
				}
				s.persist()
				return nil
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if s.cfg.CheckFileConflicts {
			if conflict := detectFileConflict(ready); conflict != nil {
				s.persist()
				return conflict
			}
		}

		for _, task := range ready {
			_ = s.dag.StartTask(task.Id)
		}
		s.maybePersist()

		results := s.runBatch(ctx, ready, exec)

		failed := false
		var failure *TaskFailedErr
		for _, r := range results {
			if r.result.Success {
				_ = s.dag.CompleteTask(r.task.Id, r.result.Result)
			} else {
				_ = s.dag.FailTask(r.task.Id, r.result.Error)
				failed = true
				if failure == nil {
					failure = &TaskFailedErr{TaskId: r.task.Id, Reason: r.result.Error}
				}
			}
		}

		if failed && s.cfg.FailFast {
			s.persist()
			return failure
		}

		s.persist()
	}
}

type batchResult struct {
	task   Task
	result ExecutionResult
}

func (s *Scheduler) runBatch(ctx context.Context, tasks []Task, exec Executor) []batchResult {
	results := make([]batchResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			results[i] = batchResult{task: task, result: s.runOne(ctx, task, exec)}
		}(i, task)
	}
	wg.Wait()
	return results
}

func (s *Scheduler) runOne(ctx context.Context, task Task, exec Executor) ExecutionResult {
	taskCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.PerTaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, s.cfg.PerTaskTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := exec(taskCtx, task)
	duration := time.Since(start)

	if err != nil {
		msg := err.Error()
		if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			msg = "task timed out: " + msg
		}
		return ExecutionResult{Success: false, Error: msg, Duration: duration, AgentId: task.AgentId}
	}
	return ExecutionResult{Success: true, Result: result, Duration: duration, AgentId: task.AgentId}
}

// detectFileConflict checks a batch pairwise for a shared affected file.
// O(b^2 * f) where b is batch size and f is files per task, matching the
// scheduler's documented bound for small batches.
func detectFileConflict(batch []Task) *FileConflictError {
	for i := 0; i < len(batch); i++ {
		for j := i + 1; j < len(batch); j++ {
			for _, fa := range batch[i].AffectedFiles {
				for _, fb := range batch[j].AffectedFiles {
					if fa == fb {
						return &FileConflictError{Task1: batch[i].Id, Task2: batch[j].Id, File: fa}
					}
				}
			}
		}
	}
	return nil
}

func (s *Scheduler) pendingIds() []TaskId {
	var ids []TaskId
	for _, t := range s.dag.Tasks() {
		if t.Status == Pending {
			ids = append(ids, t.Id)
		}
	}
	return ids
}

func (s *Scheduler) maybePersist() {
	if s.cfg.PersistInterval <= 0 {
		s.persist()
		return
	}
	if time.Since(s.lastPersist) >= s.cfg.PersistInterval {
		s.persist()
	}
}

func (s *Scheduler) persist() {
	_ = s.cfg.Store.Save(s.cfg.RunID, s.dag.Snapshot())
	s.lastPersist = time.Now()
}
