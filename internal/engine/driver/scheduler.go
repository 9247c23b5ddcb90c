package driver

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/zerr"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	// StatusPending indicates the job is waiting for its dependencies.
	StatusPending JobStatus = "Pending"
	// StatusRunning indicates the job is currently executing.
	StatusRunning JobStatus = "Running"
	// StatusCompleted indicates the job has finished successfully.
	StatusCompleted JobStatus = "Completed"
	// StatusFailed indicates the job failed.
	StatusFailed JobStatus = "Failed"
	// StatusFresh indicates the job was satisfied from the incremental cache.
	StatusFresh JobStatus = "Fresh"
	// StatusSkipped indicates the job never ran because the build stopped early.
	StatusSkipped JobStatus = "Skipped"
)

// errFresh is returned by a job that reused cached outputs.
var errFresh = errors.New("fresh")

type job struct {
	id   string
	deps []string
	run  func(ctx context.Context) error
}

// scheduler runs jobs in dependency order. After the first failure no new job is started;
// jobs already running finish first.
type scheduler struct {
	jobs       []*job
	dependents map[string][]string

	mu     sync.RWMutex
	status map[string]JobStatus
}

func newScheduler(jobs []*job) *scheduler {
	s := &scheduler{
		jobs:       jobs,
		dependents: make(map[string][]string, len(jobs)),
		status:     make(map[string]JobStatus, len(jobs)),
	}
	for _, j := range jobs {
		s.status[j.id] = StatusPending
		for _, dep := range j.deps {
			s.dependents[dep] = append(s.dependents[dep], j.id)
		}
	}
	return s
}

func (s *scheduler) updateStatus(id string, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = status
}

// Status returns the status of the job with id.
func (s *scheduler) Status(id string) JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[id]
}

// run executes the jobs with at most parallelism of them at once.
func (s *scheduler) run(ctx context.Context, parallelism int) error {
	state := s.newRunState(ctx, max(parallelism, 1))

	for !state.isDone() {
		state.schedule()

		// Nothing left to wait for once scheduling stopped early.
		if state.active == 0 {
			break
		}

		state.handleResult(<-state.resultsCh)
	}

	s.mu.Lock()
	for id, status := range s.status {
		if status == StatusPending {
			s.status[id] = StatusSkipped
		}
	}
	s.mu.Unlock()
	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}
	return state.errs
}

type result struct {
	job string
	err error
}

type runState struct {
	inDegree    map[string]int
	jobs        map[string]*job
	ready       []string
	active      int
	resultsCh   chan result
	errs        error
	ctx         context.Context
	parallelism int
	s           *scheduler
}

func (s *scheduler) newRunState(ctx context.Context, parallelism int) *runState {
	state := &runState{
		inDegree:    make(map[string]int, len(s.jobs)),
		jobs:        make(map[string]*job, len(s.jobs)),
		resultsCh:   make(chan result, parallelism),
		ctx:         ctx,
		parallelism: parallelism,
		s:           s,
	}
	for _, j := range s.jobs {
		state.jobs[j.id] = j
		state.inDegree[j.id] = len(j.deps)
		if len(j.deps) == 0 {
			state.ready = append(state.ready, j.id)
		}
	}
	return state
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil && state.errs == nil {
		id := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(id, StatusRunning)

		go func(j *job) {
			state.resultsCh <- result{job: j.id, err: j.run(state.ctx)}
		}(state.jobs[id])
	}
}

func (state *runState) handleResult(res result) {
	state.active--
	switch {
	case errors.Is(res.err, errFresh):
		state.s.updateStatus(res.job, StatusFresh)
	case res.err != nil:
		state.errs = errors.Join(state.errs, zerr.With(res.err, "unit", res.job))
		state.s.updateStatus(res.job, StatusFailed)
		return
	default:
		state.s.updateStatus(res.job, StatusCompleted)
	}
	for _, dep := range state.s.dependents[res.job] {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}
