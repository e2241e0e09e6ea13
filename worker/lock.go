package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taller-backend/models"
)

// LockManager keeps two reaper runs, possibly from two processes, from overlapping
type LockManager struct {
	models.LockManager
}

// NewLockManager creates a new lock manager
func NewLockManager(lockPath string, timeout time.Duration, env string) *LockManager {
	return &LockManager{models.LockManager{
		LockFilePath: lockPath,
		LockTimeout:  timeout,
		Environment:  env,
	}}
}

// AcquireLock takes the lock for ownerID. The holder of a live lock renews it;
// anyone else gets an error until it expires.
func (lm *LockManager) AcquireLock(ownerID string) (*models.LockInfo, error) {
	now := time.Now()
	held, err := lm.load()
	// an unreadable or expired lock file is overwritten
	if err == nil && now.Before(held.ExpiresAt) {
		if held.Owner != ownerID || held.Environment != lm.Environment {
			return nil, fmt.Errorf("reaper lock held by %s until %s", held.Owner, held.ExpiresAt.Format(time.RFC3339))
		}
		held.ExpiresAt = now.Add(lm.LockTimeout)
		if err := lm.store(held); err != nil {
			return nil, err
		}
		return held, nil
	}

	lease := &models.LockInfo{
		ID:          fmt.Sprintf("reaper-%s-%d", ownerID, now.UnixNano()),
		Owner:       ownerID,
		AcquiredAt:  now,
		ExpiresAt:   now.Add(lm.LockTimeout),
		Environment: lm.Environment,
	}
	if err := lm.store(lease); err != nil {
		return nil, err
	}
	return lease, nil
}

// ReleaseLock drops the lock when lease still owns it. A missing file is not an error.
func (lm *LockManager) ReleaseLock(lease *models.LockInfo) error {
	held, err := lm.load()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if held.Owner != lease.Owner {
		return fmt.Errorf("reaper lock belongs to %s", held.Owner)
	}
	if err := os.Remove(lm.LockFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove reaper lock: %w", err)
	}
	return nil
}

func (lm *LockManager) load() (*models.LockInfo, error) {
	raw, err := os.ReadFile(lm.LockFilePath)
	if err != nil {
		return nil, err
	}
	var lease models.LockInfo
	if err := json.Unmarshal(raw, &lease); err != nil {
		return nil, fmt.Errorf("decode reaper lock: %w", err)
	}
	return &lease, nil
}

// store replaces the lock file atomically
func (lm *LockManager) store(lease *models.LockInfo) error {
	if err := os.MkdirAll(filepath.Dir(lm.LockFilePath), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	raw, err := json.MarshalIndent(lease, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reaper lock: %w", err)
	}
	tmp := lm.LockFilePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write reaper lock: %w", err)
	}
	if err := os.Rename(tmp, lm.LockFilePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write reaper lock: %w", err)
	}
	return nil
}
