// Package queue is the concurrency and scheduling runtime (spec §5): named
// work queues with bounded concurrency and a rate limiter, exponential
// backoff retries, bounded completion/failure retention, and a
// single-owner periodic scheduler that drives the collector's jobs.
package queue

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rs/zerolog"
)

// Defaults per spec §5.
const (
	DefaultConcurrency  = 20
	DefaultRatePerSec   = 50.0
	DefaultMaxAttempts  = 3
	DefaultBackoffBase  = time.Second
	DefaultKeepComplete = 100
	DefaultKeepFailed   = 50
)

// Job is one unit of work submitted to a Queue.
type Job struct {
	ID   string // "{kind}-{tokenId}-{nowMs}"; deduplicated within one tick
	Kind string
	Run  func(ctx context.Context) error
}

// Record is a retained completed or failed job outcome.
type Record struct {
	ID       string
	Kind     string
	Attempts int
	Err      error
	At       time.Time
}

// Config tunes one Queue's concurrency, rate limit, retry, and retention.
type Config struct {
	Concurrency  int
	RatePerSec   float64
	MaxAttempts  int
	BackoffBase  time.Duration
	KeepComplete int
	KeepFailed   int
}

func DefaultConfig() Config {
	return Config{
		Concurrency:  DefaultConcurrency,
		RatePerSec:   DefaultRatePerSec,
		MaxAttempts:  DefaultMaxAttempts,
		BackoffBase:  DefaultBackoffBase,
		KeepComplete: DefaultKeepComplete,
		KeepFailed:   DefaultKeepFailed,
	}
}

// Queue runs jobs with bounded concurrency and a shared rate limiter,
// retrying failures with exponential backoff up to MaxAttempts, and
// retaining a bounded window of recent outcomes for inspection.
type Queue struct {
	name    string
	cfg     Config
	limiter *rate.Limiter
	jobs    chan Job
	log     zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
	complete []Record
	failed   []Record
}

func New(name string, cfg Config, log zerolog.Logger) *Queue {
	return &Queue{
		name:     name,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(cfg.RatePerSec)+1),
		jobs:     make(chan Job, cfg.Concurrency*4),
		log:      log.With().Str("queue", name).Logger(),
		inFlight: make(map[string]bool),
	}
}

// Enqueue submits a job, deduplicating on Job.ID against jobs currently
// in-flight or pending (spec §5: job identity must deduplicate within one
// tick). Returns false without blocking if the job was a duplicate or the
// queue is full.
func (q *Queue) Enqueue(job Job) bool {
	q.mu.Lock()
	if q.inFlight[job.ID] {
		q.mu.Unlock()
		return false
	}
	q.inFlight[job.ID] = true
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return true
	default:
		q.mu.Lock()
		delete(q.inFlight, job.ID)
		q.mu.Unlock()
		q.log.Warn().Str("jobId", job.ID).Msg("queue full, dropping job")
		return false
	}
}

// Run starts cfg.Concurrency workers and blocks until ctx is cancelled or a
// worker returns a non-context error.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.cfg.Concurrency; i++ {
		g.Go(func() error { return q.worker(ctx) })
	}
	return g.Wait()
}

func (q *Queue) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job, ok := <-q.jobs:
			if !ok {
				return nil
			}
			q.execute(ctx, job)
		}
	}
}

func (q *Queue) execute(ctx context.Context, job Job) {
	defer func() {
		q.mu.Lock()
		delete(q.inFlight, job.ID)
		q.mu.Unlock()
	}()

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		attempts = attempt
		if err := q.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}
		lastErr = job.Run(ctx)
		if lastErr == nil {
			break
		}
		if attempt < q.cfg.MaxAttempts {
			backoff := q.cfg.BackoffBase * time.Duration(1<<uint(attempt-1))
			q.log.Warn().Str("jobId", job.ID).Int("attempt", attempt).Err(lastErr).Dur("backoff", backoff).Msg("job failed, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
				goto recordOutcome
			}
		}
	}

recordOutcome:
	rec := Record{ID: job.ID, Kind: job.Kind, Attempts: attempts, Err: lastErr, At: time.Now()}
	q.record(rec)
}

func (q *Queue) record(rec Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec.Err == nil {
		q.complete = appendBounded(q.complete, rec, q.cfg.KeepComplete)
	} else {
		q.failed = appendBounded(q.failed, rec, q.cfg.KeepFailed)
		q.log.Error().Str("jobId", rec.ID).Int("attempts", rec.Attempts).Err(rec.Err).Msg("job exhausted retries")
	}
}

func appendBounded(recs []Record, rec Record, keep int) []Record {
	recs = append(recs, rec)
	if len(recs) > keep {
		recs = recs[len(recs)-keep:]
	}
	return recs
}

// Snapshot returns copies of the retained completed/failed records, most
// recent last.
func (q *Queue) Snapshot() (complete, failed []Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	complete = append([]Record(nil), q.complete...)
	failed = append([]Record(nil), q.failed...)
	return complete, failed
}
