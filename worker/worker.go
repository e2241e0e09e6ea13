package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"taller-backend/models"
	"taller-backend/utils"
	"taller-backend/utils/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron"
)

// OrphanStore is the ledger of records a failed compensation left behind
type OrphanStore interface {
	ListOrphans(ctx context.Context) ([]*models.Orphan, error)
	DeleteOrphan(ctx context.Context, id string) error
	MarkAttempt(ctx context.Context, id string, attempts int, at time.Time) error
}

// ResourceRemover deletes each kind of record the intake saga can create
type ResourceRemover interface {
	DeleteClient(ctx context.Context, id string) error
	DeleteVehicle(ctx context.Context, id string) error
	DeleteService(ctx context.Context, id string) error
	DiscardUpload(ctx context.Context, key string) error
}

const defaultReaperSchedule = "0 */10 * * * *"

// Reaper retries the deletes that failed during saga compensation
type Reaper struct {
	store   OrphanStore
	remover ResourceRemover
	locks   *LockManager
	config  *models.WorkerConfig
	logger  logger.Logger
	ownerID string
	cronJob *cron.Cron
	now     func() time.Time

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewReaper(store OrphanStore, remover ResourceRemover, cfg *models.Config, log logger.Logger) (*Reaper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname = "localhost"
	}

	workerConfig := &models.WorkerConfig{
		CronSchedule: cfg.OrphanReaperSchedule,
		LockTimeout:  15 * time.Minute,
		MaxAttempts:  cfg.OrphanReaperMaxAttempts,
		LockFilePath: cfg.OrphanReaperLockPath,
		Environment:  cfg.AppEnv,
	}
	if workerConfig.CronSchedule == "" {
		workerConfig.CronSchedule = defaultReaperSchedule
	}
	if workerConfig.MaxAttempts == 0 {
		workerConfig.MaxAttempts = 5
	}
	if workerConfig.LockFilePath == "" {
		workerConfig.LockFilePath = fmt.Sprintf("/tmp/taller-reaper-%s.lock", cfg.AppEnv)
	}

	if err := validateWorkerConfig(workerConfig); err != nil {
		return nil, fmt.Errorf("invalid worker configuration: %w", err)
	}
	log.Infof("Orphan reaper configuration: %s", utils.PrintPrettyJSON(workerConfig))

	ctx, cancel := context.WithCancel(context.Background())

	return &Reaper{
		store:   store,
		remover: remover,
		locks:   NewLockManager(workerConfig.LockFilePath, workerConfig.LockTimeout, workerConfig.Environment),
		config:  workerConfig,
		logger:  log,
		ownerID: fmt.Sprintf("reaper-%s-%s", hostname, uuid.New().String()[:8]),
		cronJob: cron.New(),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// validateWorkerConfig validates the worker configuration
func validateWorkerConfig(config *models.WorkerConfig) error {
	if config.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if config.LockTimeout <= 0 {
		return fmt.Errorf("lock timeout must be positive")
	}
	if config.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if config.LockFilePath == "" {
		return fmt.Errorf("lock file path is required")
	}
	if _, err := cron.Parse(config.CronSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", config.CronSchedule, err)
	}
	return nil
}

// Start schedules the reaper
func (r *Reaper) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reaper is already running")
	}

	select {
	case <-r.ctx.Done():
		return fmt.Errorf("reaper context is cancelled, cannot start")
	default:
	}

	if err := r.cronJob.AddFunc(r.config.CronSchedule, r.scheduledRun); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	r.cronJob.Start()
	r.running = true

	r.logger.Infof("Orphan reaper %s started with schedule: %s", r.ownerID, r.config.CronSchedule)
	return nil
}

// Stop halts the schedule and cancels an in-flight run
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.cronJob.Stop()
	r.cancel()
	r.running = false
	r.logger.Info("Orphan reaper stopped")
}

// IsRunning returns whether the reaper is scheduled
func (r *Reaper) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reaper) scheduledRun() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("Orphan reaper run panicked: %v", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Minute)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Errorf("Orphan reaper run failed: %v", err)
	}
}

// RunOnce processes every recorded orphan. A run that cannot take the lock is skipped.
func (r *Reaper) RunOnce(ctx context.Context) (*models.ReapResult, error) {
	result := &models.ReapResult{StartTime: r.now()}

	lockInfo, err := r.locks.AcquireLock(r.ownerID)
	if err != nil {
		r.logger.Warnf("Skipping orphan reaper run: %v", err)
		result.Skipped = true
		return result, nil
	}
	defer func() {
		if err := r.locks.ReleaseLock(lockInfo); err != nil {
			r.logger.Errorf("Failed to release lock: %v", err)
		}
	}()

	orphans, err := r.store.ListOrphans(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list orphans: %w", err)
	}
	result.Scanned = len(orphans)

	for _, orphan := range orphans {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		r.reap(ctx, orphan, result)
	}

	result.Duration = r.now().Sub(result.StartTime)
	r.logger.Infof("Orphan reaper run finished: scanned=%d removed=%d retrying=%d abandoned=%d",
		result.Scanned, result.Removed, result.Retrying, result.Abandoned)
	return result, nil
}

func (r *Reaper) reap(ctx context.Context, orphan *models.Orphan, result *models.ReapResult) {
	if orphan.Attempts >= r.config.MaxAttempts {
		r.logger.Warnf("Orphan %s (%s %s) abandoned after %d attempts, remove it manually",
			orphan.ID, orphan.Kind, orphan.ResourceID, orphan.Attempts)
		result.Abandoned++
		return
	}

	err := r.remove(ctx, orphan)
	if err == nil || errors.Is(err, models.ErrNotFound) {
		if err := r.store.DeleteOrphan(ctx, orphan.ID); err != nil {
			r.logger.Errorf("Removed %s %s but could not clear orphan record %s: %v", orphan.Kind, orphan.ResourceID, orphan.ID, err)
		}
		result.Removed++
		return
	}

	attempts := orphan.Attempts + 1
	r.logger.Warnf("Retry %d/%d of orphan %s (%s %s) failed: %v",
		attempts, r.config.MaxAttempts, orphan.ID, orphan.Kind, orphan.ResourceID, err)
	if err := r.store.MarkAttempt(ctx, orphan.ID, attempts, r.now()); err != nil {
		r.logger.Errorf("Failed to record attempt on orphan %s: %v", orphan.ID, err)
	}
	if attempts >= r.config.MaxAttempts {
		result.Abandoned++
		return
	}
	result.Retrying++
}

func (r *Reaper) remove(ctx context.Context, orphan *models.Orphan) error {
	switch orphan.Kind {
	case models.KindClient:
		return r.remover.DeleteClient(ctx, orphan.ResourceID)
	case models.KindVehicle:
		return r.remover.DeleteVehicle(ctx, orphan.ResourceID)
	case models.KindService:
		return r.remover.DeleteService(ctx, orphan.ResourceID)
	case models.KindPhoto:
		return r.remover.DiscardUpload(ctx, orphan.ResourceID)
	default:
		return fmt.Errorf("unknown orphan kind %q", orphan.Kind)
	}
}
