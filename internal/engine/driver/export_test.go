package driver

import (
	"context"
	"time"
)

// ErrFresh is the sentinel a job returns when it reused cached outputs.
var ErrFresh = errFresh

// JobSpec describes a scheduler job.
type JobSpec struct {
	ID   string
	Deps []string
	Run  func(ctx context.Context) error
}

// RunJobs schedules specs and returns the final status of every job.
func RunJobs(ctx context.Context, specs []JobSpec, parallelism int) (map[string]JobStatus, error) {
	jobs := make([]*job, 0, len(specs))
	for _, spec := range specs {
		jobs = append(jobs, &job{id: spec.ID, deps: spec.Deps, run: spec.Run})
	}
	s := newScheduler(jobs)
	err := s.run(ctx, parallelism)
	statuses := make(map[string]JobStatus, len(jobs))
	for _, j := range jobs {
		statuses[j.id] = s.Status(j.id)
	}
	return statuses, err
}

// Elapsed exposes the finish line duration format.
func Elapsed(d time.Duration) string {
	return elapsed(d)
}
