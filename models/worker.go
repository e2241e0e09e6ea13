package models

import "time"

// LockManager handles the file lock that keeps reaper runs from overlapping
type LockManager struct {
	LockFilePath string
	LockTimeout  time.Duration
	Environment  string
}

// LockInfo represents lock file contents
type LockInfo struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Environment string    `json:"environment"`
}

// WorkerConfig holds configuration for the orphan reaper
type WorkerConfig struct {
	CronSchedule string        `json:"cron_schedule"`
	LockTimeout  time.Duration `json:"lock_timeout"`
	MaxAttempts  int           `json:"max_attempts"`
	LockFilePath string        `json:"lock_file_path"`
	Environment  string        `json:"environment"`
}

// ReapResult summarises one reaper run
type ReapResult struct {
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Scanned   int           `json:"scanned"`
	Removed   int           `json:"removed"`
	Retrying  int           `json:"retrying"`
	Abandoned int           `json:"abandoned"`
	Skipped   bool          `json:"skipped"`
}
