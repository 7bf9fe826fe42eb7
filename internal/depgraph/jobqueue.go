package depgraph

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// faultState is the single shared fault flag spec.md §5 describes: any
// JobKind raising an error poisons the whole build, and CheckFault returns
// the first one recorded. Later faults are dropped — only the first is
// reported, matching "a fault... poisons the whole build" rather than
// accumulating every downstream failure it causes.
type faultState struct {
	mu  sync.Mutex
	err error
}

func newFaultState() *faultState {
	return &faultState{}
}

func (f *faultState) set(err error) {
	if err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

// check implements CheckFault: returns the first fault raised so far, if
// any.
func (f *faultState) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// JobKind is the coarse classification spec.md §5 assigns submitted jobs:
// IO-bound work (stream reads/writes, archive decompression) versus
// CPU-bound work (stage compiles, packed-size computation).
type JobKind int

const (
	JobIO JobKind = iota
	JobCPU
)

// JobQueue runs JobRunner closures against a bounded worker pool, sharing
// one faultState across every submission so any failure aborts the rest of
// the build at the next suspension point (spec.md §5's "every open_*,
// read_*, and write_* ... is a potential suspension; the job queue's
// CheckFault is polled at every such boundary").
//
// Grounded on the teacher's internal/indexing worker-pool idiom (bounded
// goroutine fan-out over a work channel with a shared atomic error), ported
// onto golang.org/x/sync's errgroup (context-scoped cancellation-on-first-
// error) and semaphore (per-JobKind concurrency caps) instead of hand-rolled
// channels, since golang.org/x/sync is already the pack's dependency for
// exactly this job.
type JobQueue struct {
	fault *faultState

	ioSem  *semaphore.Weighted
	cpuSem *semaphore.Weighted

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJobQueue builds a queue with ioConcurrency/cpuConcurrency worker slots
// for each JobKind. A non-positive value defaults to runtime.NumCPU().
func NewJobQueue(ioConcurrency, cpuConcurrency int) *JobQueue {
	if ioConcurrency <= 0 {
		ioConcurrency = runtime.NumCPU()
	}
	if cpuConcurrency <= 0 {
		cpuConcurrency = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	return &JobQueue{
		fault:  newFaultState(),
		ioSem:  semaphore.NewWeighted(int64(ioConcurrency)),
		cpuSem: semaphore.NewWeighted(int64(cpuConcurrency)),
		group:  group,
		ctx:    gctx,
		cancel: cancel,
	}
}

// JobRunner is one unit of submitted work.
type JobRunner func(ctx context.Context) error

// Submit schedules run under kind's semaphore. Submitting after a fault has
// already been recorded is a no-op: the job is dropped rather than queued,
// since spec.md says in-flight work finishes its current syscall and exits,
// not that new work keeps starting.
func (q *JobQueue) Submit(kind JobKind, run JobRunner) {
	if err := q.CheckFault(); err != nil {
		return
	}
	sem := q.ioSem
	if kind == JobCPU {
		sem = q.cpuSem
	}
	q.group.Go(func() error {
		if err := sem.Acquire(q.ctx, 1); err != nil {
			return err
		}
		defer sem.Release(1)
		if err := q.CheckFault(); err != nil {
			return err
		}
		err := run(q.ctx)
		if err != nil {
			q.fault.set(err)
			q.cancel()
		}
		return err
	})
}

// CheckFault returns the first fault raised by any submitted job, if any.
func (q *JobQueue) CheckFault() error {
	return q.fault.check()
}

// Wait blocks until every submitted job has returned, then returns the
// first fault raised (if any). Safe to call once all Submit calls for this
// queue's lifetime have completed.
func (q *JobQueue) Wait() error {
	_ = q.group.Wait()
	return q.fault.check()
}
