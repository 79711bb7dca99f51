package dagtask

import (
	"sort"
	"sync"
	"time"

	"github.com/gammazero/toposort"
)

// TaskDag owns a set of tasks and the dependency edges between them.
// Callers never get a pointer into the internal map: every accessor
// returns a clone, matching the ownership rule that the DAG alone may
// mutate a Task's state.
type TaskDag struct {
	mu    sync.RWMutex
	tasks map[TaskId]*Task
}

// New returns an empty TaskDag.
func New() *TaskDag {
	return &TaskDag{tasks: make(map[TaskId]*Task)}
}

// AddTask assigns a fresh TaskId to task and stores it as Pending.
func (d *TaskDag) AddTask(task Task) TaskId {
	d.mu.Lock()
	defer d.mu.Unlock()

	task.Id = nextTaskId()
	task.Status = Pending
	task.CreatedAt = time.Now()
	if task.Dependencies == nil {
		task.Dependencies = []TaskId{}
	}
	if task.Dependents == nil {
		task.Dependents = []TaskId{}
	}
	d.tasks[task.Id] = cloneTask(&task)
	return task.Id
}

// AddDependency records that task depends on dep: dep must complete before
// task may become Ready. Returns ErrTaskNotFound if either id is absent, or
// ErrCycleWouldForm (leaving the DAG unchanged) if the edge would close a
// cycle.
func (d *TaskDag) AddDependency(task, dep TaskId) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tasks[task]
	if !ok {
		return ErrTaskNotFound
	}
	dt, ok := d.tasks[dep]
	if !ok {
		return ErrTaskNotFound
	}

	for _, existing := range t.Dependencies {
		if existing == dep {
			return nil
		}
	}

	if d.reachableLocked(dep, task) {
		return ErrCycleWouldForm
	}

	t.Dependencies = append(t.Dependencies, dep)
	dt.Dependents = append(dt.Dependents, task)
	d.recalcReadyLocked()
	return nil
}

// reachableLocked reports whether to can be reached from from by following
// Dependencies edges (i.e. from transitively depends on to).
func (d *TaskDag) reachableLocked(from, to TaskId) bool {
	if from == to {
		return true
	}
	visited := map[TaskId]bool{}
	var walk func(TaskId) bool
	walk = func(id TaskId) bool {
		if visited[id] {
			return false
		}
		visited[id] = true
		task, ok := d.tasks[id]
		if !ok {
			return false
		}
		for _, depID := range task.Dependencies {
			if depID == to || walk(depID) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// TopologicalSort returns task ids ordered so every dependency precedes its
// dependents, or ErrCycleDetected if the graph is not a DAG.
func (d *TaskDag) TopologicalSort() ([]TaskId, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var edges []toposort.Edge
	for id, task := range d.tasks {
		if len(task.Dependencies) == 0 {
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, depID := range task.Dependencies {
			edges = append(edges, toposort.Edge{depID, id})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, ErrCycleDetected
	}

	order := make([]TaskId, 0, len(d.tasks))
	for _, raw := range sorted {
		if raw == nil {
			continue
		}
		order = append(order, raw.(TaskId))
	}
	if len(order) != len(d.tasks) {
		return nil, ErrCycleDetected
	}
	return order, nil
}

// ReadyTasksByPriority returns every Ready task, highest priority first and
// insertion order (ascending TaskId) breaking ties.
func (d *TaskDag) ReadyTasksByPriority() []Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recalcReadyLocked()

	var ready []*Task
	for _, task := range d.tasks {
		if task.Status == Ready {
			ready = append(ready, task)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].Id < ready[j].Id
	})

	out := make([]Task, len(ready))
	for i, task := range ready {
		out[i] = *cloneTask(task)
	}
	return out
}

// Get returns a copy of the task with the given id.
func (d *TaskDag) Get(id TaskId) (Task, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	task, ok := d.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *cloneTask(task), true
}

// Tasks returns a copy of every task in the DAG.
func (d *TaskDag) Tasks() []Task {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Task, 0, len(d.tasks))
	for _, task := range d.tasks {
		out = append(out, *cloneTask(task))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// StartTask transitions a Ready task to Running.
func (d *TaskDag) StartTask(id TaskId) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = Running
	now := time.Now()
	task.StartedAt = &now
	return nil
}

// CompleteTask transitions a Running task to Completed and re-evaluates
// dependents: any Pending task whose dependencies are now all Completed
// becomes Ready.
func (d *TaskDag) CompleteTask(id TaskId, result string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = Completed
	task.Result = result
	now := time.Now()
	task.FinishedAt = &now
	d.recalcReadyLocked()
	return nil
}

// FailTask transitions a Running task to Failed and cascades Skipped to
// every task that transitively depends on it.
func (d *TaskDag) FailTask(id TaskId, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = Failed
	task.Error = reason
	now := time.Now()
	task.FinishedAt = &now
	d.cascadeSkipLocked(id)
	d.recalcReadyLocked()
	return nil
}

// SkipTask marks a task Skipped directly (e.g. disabled before the run
// started) and cascades the same way FailTask does.
func (d *TaskDag) SkipTask(id TaskId) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = Skipped
	now := time.Now()
	task.FinishedAt = &now
	d.cascadeSkipLocked(id)
	d.recalcReadyLocked()
	return nil
}

// CancelRunning marks every currently Running task Cancelled. Used by the
// scheduler when execute_all observes a cancelled context.
func (d *TaskDag) CancelRunning() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for _, task := range d.tasks {
		if task.Status == Running {
			task.Status = Cancelled
			task.FinishedAt = &now
		}
	}
}

func (d *TaskDag) cascadeSkipLocked(id TaskId) {
	task, ok := d.tasks[id]
	if !ok {
		return
	}
	now := time.Now()
	for _, depID := range task.Dependents {
		dep, ok := d.tasks[depID]
		if !ok || dep.Status == Completed || dep.Status == Skipped || dep.Status == Failed {
			continue
		}
		dep.Status = Skipped
		dep.FinishedAt = &now
		d.cascadeSkipLocked(depID)
	}
}

// recalcReadyLocked promotes every Pending task whose dependencies are all
// Completed to Ready. Must be called with d.mu held.
func (d *TaskDag) recalcReadyLocked() {
	for _, task := range d.tasks {
		if task.Status != Pending {
			continue
		}
		allDone := true
		for _, depID := range task.Dependencies {
			dep, ok := d.tasks[depID]
			if !ok || dep.Status != Completed {
				allDone = false
				break
			}
		}
		if allDone {
			task.Status = Ready
		}
	}
}

// Progress summarizes the DAG's current state.
func (d *TaskDag) Progress() Progress {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p := Progress{Total: len(d.tasks)}
	for _, task := range d.tasks {
		switch task.Status {
		case Completed:
			p.Completed++
		case Failed:
			p.Failed++
		case Skipped:
			p.Skipped++
		case Running:
			p.Running++
			p.RunningTaskNames = append(p.RunningTaskNames, task.Name)
		case Pending, Ready:
			p.Pending++
		}
	}
	return p
}
