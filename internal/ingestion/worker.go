package ingestion

import (
	"context"
	"sync"
)

// FileImporter imports one file and reports how many rows were stored and skipped.
type FileImporter interface {
	ImportFile(ctx context.Context, path string) (imported, skipped int, err error)
}

type Job struct {
	FilePath string
	Result   chan<- JobResult
}

type JobResult struct {
	FilePath string
	Imported int
	Skipped  int
	Error    error
}

// WorkerPool imports files with a fixed number of concurrent workers.
type WorkerPool struct {
	workers  int
	importer FileImporter
	jobQueue chan Job
	wg       sync.WaitGroup
}

func NewWorkerPool(workers int, importer FileImporter) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{
		workers:  workers,
		importer: importer,
		jobQueue: make(chan Job, workers*2),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

// Stop closes the queue and waits for in-flight jobs.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
}

// Submit queues job, giving up when ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) bool {
	select {
	case wp.jobQueue <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

func (wp *WorkerPool) worker(ctx context.Context) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			imported, skipped, err := wp.importer.ImportFile(ctx, job.FilePath)
			job.Result <- JobResult{
				FilePath: job.FilePath,
				Imported: imported,
				Skipped:  skipped,
				Error:    err,
			}
		}
	}
}

// ImportAll runs every path through a pool of workers and returns results in input order.
func ImportAll(ctx context.Context, workers int, importer FileImporter, paths []string) []JobResult {
	pool := NewWorkerPool(workers, importer)
	pool.Start(ctx)

	results := make(chan JobResult, len(paths))
	go func() {
		for _, path := range paths {
			if !pool.Submit(ctx, Job{FilePath: path, Result: results}) {
				break
			}
		}
		pool.Stop()
		close(results)
	}()

	byPath := make(map[string][]JobResult, len(paths))
	for r := range results {
		byPath[r.FilePath] = append(byPath[r.FilePath], r)
	}

	out := make([]JobResult, 0, len(paths))
	for _, path := range paths {
		rs := byPath[path]
		if len(rs) == 0 {
			out = append(out, JobResult{FilePath: path, Error: ctx.Err()})
			continue
		}
		out = append(out, rs[0])
		byPath[path] = rs[1:]
	}
	return out
}
