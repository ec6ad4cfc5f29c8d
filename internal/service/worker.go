package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is a periodic background task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Workers runs jobs on tickers until the context is cancelled.
type Workers struct {
	jobs []Job
	wg   sync.WaitGroup
}

// NewWorkers creates a worker set. Jobs with a non-positive interval are
// disabled.
func NewWorkers(jobs ...Job) *Workers {
	return &Workers{jobs: jobs}
}

// Start launches one goroutine per enabled job. Each job runs once right
// away and then on every tick.
func (w *Workers) Start(ctx context.Context) {
	for _, job := range w.jobs {
		if job.Interval <= 0 {
			log.Info().Str("job", job.Name).Msg("Background job disabled")
			continue
		}
		w.wg.Add(1)
		go func(job Job) {
			defer w.wg.Done()
			w.loop(ctx, job)
		}(job)
	}
}

// Wait blocks until every job goroutine has returned.
func (w *Workers) Wait() {
	w.wg.Wait()
}

func (w *Workers) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	log.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("Background job started")
	runJob(ctx, job)
	for {
		select {
		case <-ticker.C:
			runJob(ctx, job)
		case <-ctx.Done():
			log.Info().Str("job", job.Name).Msg("Background job stopped")
			return
		}
	}
}

func runJob(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("job", job.Name).Interface("panic", r).Msg("Recovered from panic in background job")
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Str("job", job.Name).Msg("Background job failed")
		return
	}
	log.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("Background job finished")
}
