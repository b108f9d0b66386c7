package stagerunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/krai/engine/internal/errs"
	"github.com/krai/engine/internal/repository"
)

// Runner manages a pool of workers that lease and execute queue items.
type Runner struct {
	mu sync.RWMutex

	queueRepo repository.QueueRepository
	executor  *Executor
	logger    *slog.Logger

	workerCount     int
	pollInterval    time.Duration
	leaseFor        time.Duration
	workerID        string
	recoverInterval time.Duration
	stages          []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RunnerConfig holds configuration for the runner.
type RunnerConfig struct {
	// WorkerCount is the number of concurrent workers. Default: 4.
	WorkerCount int

	// PollInterval is how often an idle worker polls for work. Default: 5s.
	PollInterval time.Duration

	// LeaseFor is how long an acquired queue item's lease lasts before
	// it is eligible for recovery. Default: 10 minutes.
	LeaseFor time.Duration

	// WorkerID identifies this runner instance as a lease owner.
	// Default: randomly generated.
	WorkerID string

	// RecoverInterval is how often expired leases are swept back to
	// pending. Default: 1 minute.
	RecoverInterval time.Duration

	// Stages restricts which stage names this runner will acquire work
	// for. Default: stagerunner.StageOrder (every stage).
	Stages []string
}

// DefaultRunnerConfig returns the default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:     4,
		PollInterval:    5 * time.Second,
		LeaseFor:        10 * time.Minute,
		WorkerID:        fmt.Sprintf("stagerunner-%d", time.Now().UnixNano()),
		RecoverInterval: time.Minute,
		Stages:          StageOrder,
	}
}

// NewRunner creates a new stage runner.
func NewRunner(queueRepo repository.QueueRepository, executor *Executor) *Runner {
	config := DefaultRunnerConfig()
	return &Runner{
		queueRepo:       queueRepo,
		executor:        executor,
		logger:          slog.Default(),
		workerCount:     config.WorkerCount,
		pollInterval:    config.PollInterval,
		leaseFor:        config.LeaseFor,
		workerID:        config.WorkerID,
		recoverInterval: config.RecoverInterval,
		stages:          config.Stages,
	}
}

// WithLogger sets a custom logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.logger = logger
	return r
}

// WithConfig applies non-zero fields from config, leaving the rest at
// their current value.
func (r *Runner) WithConfig(config RunnerConfig) *Runner {
	if config.WorkerCount > 0 {
		r.workerCount = config.WorkerCount
	}
	if config.PollInterval > 0 {
		r.pollInterval = config.PollInterval
	}
	if config.LeaseFor > 0 {
		r.leaseFor = config.LeaseFor
	}
	if config.WorkerID != "" {
		r.workerID = config.WorkerID
	}
	if config.RecoverInterval > 0 {
		r.recoverInterval = config.RecoverInterval
	}
	if len(config.Stages) > 0 {
		r.stages = config.Stages
	}
	return r
}

// Start begins the runner with the configured number of workers.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx != nil {
		return fmt.Errorf("stagerunner: already started")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	for i := 0; i < r.workerCount; i++ {
		workerID := fmt.Sprintf("%s-%d", r.workerID, i)
		r.wg.Add(1)
		go r.worker(workerID)
	}

	r.wg.Add(1)
	go r.recoverExpiredLeases()

	r.logger.Info("stage runner started",
		slog.Int("workers", r.workerCount),
		slog.Duration("poll_interval", r.pollInterval),
		slog.String("worker_id", r.workerID),
		slog.Any("stages", r.stages))

	return nil
}

// Stop stops the runner and waits for in-flight work to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	r.ctx = nil
	r.cancel = nil
	r.mu.Unlock()

	r.logger.Info("stage runner stopped")
}

var errNoItems = errors.New("no queue items available")

func (r *Runner) worker(workerID string) {
	defer r.wg.Done()

	r.logger.Debug("worker started", slog.String("worker_id", workerID))

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("worker stopping", slog.String("worker_id", workerID))
			return
		default:
			if err := r.processItem(workerID); err != nil {
				if !errors.Is(err, errNoItems) {
					r.logger.Error("error processing queue item",
						slog.String("worker_id", workerID),
						slog.Any("error", err))
				}
				select {
				case <-r.ctx.Done():
					return
				case <-time.After(r.pollInterval):
				}
			}
		}
	}
}

// processItem leases a single queue item and runs it to completion or
// failure, reporting the outcome back to the queue.
func (r *Runner) processItem(workerID string) error {
	item, err := r.queueRepo.Acquire(r.ctx, r.stages, workerID, int64(r.leaseFor.Seconds()))
	if err != nil {
		return fmt.Errorf("acquiring queue item: %w", err)
	}
	if item == nil {
		return errNoItems
	}

	r.logger.Debug("acquired queue item",
		slog.String("worker_id", workerID),
		slog.String("document_id", item.DocumentID.String()),
		slog.String("stage", item.Stage))

	execCtx, cancel := context.WithTimeout(r.ctx, r.leaseFor)
	defer cancel()

	execErr := r.executor.Execute(execCtx, item)
	if execErr == nil {
		if err := r.queueRepo.Complete(r.ctx, item.ID); err != nil {
			return fmt.Errorf("completing queue item: %w", err)
		}
		return nil
	}

	retryable := false
	var typed *errs.Error
	if errors.As(execErr, &typed) {
		retryable = typed.Kind.Retryable()
	}

	r.logger.Warn("queue item failed",
		slog.String("document_id", item.DocumentID.String()),
		slog.String("stage", item.Stage),
		slog.Bool("retryable", retryable),
		slog.Any("error", execErr))

	if err := r.queueRepo.Fail(r.ctx, item.ID, execErr.Error(), retryable); err != nil {
		return fmt.Errorf("failing queue item: %w", err)
	}
	return nil
}

func (r *Runner) recoverExpiredLeases() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.recoverInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			recovered, err := r.queueRepo.RecoverExpiredLeases(r.ctx)
			if err != nil {
				r.logger.Error("failed to recover expired leases", slog.Any("error", err))
				continue
			}
			if recovered > 0 {
				r.logger.Info("recovered expired leases", slog.Int("count", recovered))
			}
		}
	}
}

// Status reports whether the runner is currently active.
func (r *Runner) Status() RunnerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	running := r.ctx != nil && r.ctx.Err() == nil
	return RunnerStatus{
		Running:      running,
		WorkerCount:  r.workerCount,
		WorkerID:     r.workerID,
		PollInterval: r.pollInterval,
	}
}

// RunnerStatus represents the current state of the runner.
type RunnerStatus struct {
	Running      bool          `json:"running"`
	WorkerCount  int           `json:"worker_count"`
	WorkerID     string        `json:"worker_id"`
	PollInterval time.Duration `json:"poll_interval"`
}
