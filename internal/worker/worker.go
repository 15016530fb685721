package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/convert"
	"github.com/imageforge/imageforge/internal/jobs"
	"github.com/imageforge/imageforge/internal/usage"
	"github.com/imageforge/imageforge/pkg/logger"
	"github.com/imageforge/imageforge/pkg/utils"
)

const (
	cpuBackoff          = 5 * time.Second
	delayedPollInterval = time.Second
)

// errWorkerLost settles jobs orphaned by a dead worker once their retry
// budget is spent.
var errWorkerLost = errors.New("processing interrupted and retry budget exhausted")

// Worker drains the conversion queue with a fixed-size pool. Each slot loops
// dequeue -> convert -> settle until the context is canceled; a background
// loop requeues jobs orphaned by dead workers.
type Worker struct {
	cfg         *config.Config
	jobsRepo    jobs.Repository
	queueRepo   jobs.QueueRepository
	storageRepo jobs.StorageRepository
	usageRepo   usage.Repository
	reporter    usage.Reporter
	converter   *convert.Converter
	notifier    *Notifier
	logger      logger.Logger
}

func NewWorker(
	cfg *config.Config,
	jobsRepo jobs.Repository,
	queueRepo jobs.QueueRepository,
	storageRepo jobs.StorageRepository,
	usageRepo usage.Repository,
	reporter usage.Reporter,
	converter *convert.Converter,
	notifier *Notifier,
	logger logger.Logger,
) *Worker {
	return &Worker{
		cfg:         cfg,
		jobsRepo:    jobsRepo,
		queueRepo:   queueRepo,
		storageRepo: storageRepo,
		usageRepo:   usageRepo,
		reporter:    reporter,
		converter:   converter,
		notifier:    notifier,
		logger:      logger,
	}
}

// Run blocks until ctx is canceled and every in-flight job has settled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.recoveryLoop(ctx)
	}()

	for i := 0; i < w.cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, slot)
		}(i)
	}

	w.logger.Infof("worker pool started with %d slots", w.cfg.Worker.Concurrency)
	wg.Wait()
	w.logger.Info("worker pool drained")
}

func (w *Worker) loop(ctx context.Context, slot int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if w.overloaded() {
			w.logger.Warnf("slot %d backing off, CPU above %.0f%%", slot, w.cfg.Worker.MaxCPUUsage)
			select {
			case <-ctx.Done():
				return
			case <-time.After(cpuBackoff):
			}
			continue
		}

		job, raw, err := w.queueRepo.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Errorf("slot %d dequeue: %v", slot, err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.handle(ctx, job, raw)
	}
}

// overloaded samples host CPU and refuses new work above the configured
// ceiling. A failed sample never blocks the pool.
func (w *Worker) overloaded() bool {
	if w.cfg.Worker.MaxCPUUsage <= 0 {
		return false
	}
	ok, _ := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage)
	return !ok
}

func (w *Worker) recoveryLoop(ctx context.Context) {
	interval := time.Duration(w.cfg.Worker.RecoveryIntervalSecs) * time.Second
	staleAfter := time.Duration(w.cfg.Worker.StaleAfterSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	delayed := time.NewTicker(delayedPollInterval)
	defer delayed.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-delayed.C:
			if _, err := w.queueRepo.ReleaseDue(ctx); err != nil && ctx.Err() == nil {
				w.logger.Errorf("releasing delayed retries: %v", err)
			}
		case <-ticker.C:
			requeued, terminal, err := w.queueRepo.RecoverStale(ctx, staleAfter)
			if err != nil {
				w.logger.Errorf("stale job recovery: %v", err)
				continue
			}
			if requeued > 0 {
				w.logger.Infof("requeued %d stale jobs", requeued)
			}
			for _, job := range terminal {
				w.settleFailed(ctx, job, errWorkerLost, time.Now().UTC())
			}
		}
	}
}
