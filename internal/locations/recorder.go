// Package locations handles asynchronous persistence of the location trail.
// Registering a position must stay fast for the mobile client, so history
// rows are written off the request path by a small worker pool.
package locations

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/friendmap/backend/internal/models"
)

// HistoryAppender persists a single history entry.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, userName string, loc models.Location) error
}

// RecorderConfig controls the concurrency characteristics of the recorder.
type RecorderConfig struct {
	QueueSize int
	Workers   int
}

// Recorder asynchronously appends reported positions to the history trail.
type Recorder struct {
	appender HistoryAppender
	logger   *slog.Logger

	jobs   chan historyJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type historyJob struct {
	userName string
	loc      models.Location
}

// ErrRecorderClosed indicates the recorder no longer accepts work.
var ErrRecorderClosed = errors.New("location recorder closed")

// NewRecorder constructs a background worker pool that persists history rows.
func NewRecorder(appender HistoryAppender, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	rec := &Recorder{
		appender: appender,
		logger:   logger,
		jobs:     make(chan historyJob, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	rec.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go rec.worker()
	}

	return rec
}

// Enqueue schedules a history write for the supplied position.
func (r *Recorder) Enqueue(ctx context.Context, userName string, loc models.Location) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrRecorderClosed
	default:
	}

	job := historyJob{userName: userName, loc: loc}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrRecorderClosed
	case r.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.once.Do(func() {
		r.cancel()
		close(r.jobs)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for job := range r.jobs {
		r.handleJob(job)
	}
}

func (r *Recorder) handleJob(job historyJob) {
	if r.appender == nil {
		r.logger.Error("location recorder missing appender")
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.appender.AppendHistory(writeCtx, job.userName, job.loc); err != nil {
		r.logger.Error("append location history", "userName", job.userName, "error", err)
	}
}
