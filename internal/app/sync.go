package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"offline-quiz-service/internal/domain"
)

const (
	syncKey            = "questions"
	defaultSyncTimeout = time.Minute
)

// SyncStatus describes the most recent sync attempt.
type SyncStatus struct {
	InFlight     bool      `json:"inFlight"`
	LocalVersion int64     `json:"localVersion"`
	LastSyncAt   time.Time `json:"lastSyncAt"`
	LastUpdated  bool      `json:"lastUpdated"`
	LastError    string    `json:"lastError,omitempty"`
}

// SyncCoordinator keeps the local question cache aligned with the remote bank.
// It is the only writer of the cache's question table.
type SyncCoordinator struct {
	cache   QuestionCache
	source  QuestionSource
	logger  *slog.Logger
	clock   func() time.Time
	timeout time.Duration
	sf      singleflight.Group

	mu     sync.RWMutex
	status SyncStatus
}

func NewSyncCoordinator(cache QuestionCache, source QuestionSource, logger *slog.Logger) *SyncCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncCoordinator{
		cache:   cache,
		source:  source,
		logger:  logger.With("component", "sync"),
		clock:   time.Now,
		timeout: defaultSyncTimeout,
	}
}

// SetTimeout bounds a single sync run. Zero or negative restores the default.
func (c *SyncCoordinator) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultSyncTimeout
	}
	c.timeout = d
}

// Sync replaces the local questions when the remote collection is newer (or the
// cache is empty) and reports whether a replace happened. Failures are logged and
// reported as (false, nil); overlapping calls share one run.
func (c *SyncCoordinator) Sync(ctx context.Context) (bool, error) {
	result, _, _ := c.sf.Do(syncKey, func() (interface{}, error) {
		// The run outlives an impatient caller so coalesced callers still get an answer.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.syncOnce(runCtx), nil
	})
	return result.(bool), nil
}

// Refresh is Sync for a user-requested re-sync: a cached remote version is
// dropped first so a freshly published bank is seen immediately.
func (c *SyncCoordinator) Refresh(ctx context.Context) (bool, error) {
	if inv, ok := c.source.(VersionInvalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			c.logger.Warn("drop cached remote version failed", "err", err)
		}
	}
	return c.Sync(ctx)
}

// Status returns a copy of the latest sync status.
func (c *SyncCoordinator) Status() SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *SyncCoordinator) syncOnce(ctx context.Context) bool {
	c.mu.Lock()
	c.status.InFlight = true
	c.mu.Unlock()

	updated, version, err := c.run(ctx)
	if err != nil {
		c.logger.Warn("question sync failed, keeping cached questions", "err", err)
	}

	c.mu.Lock()
	c.status = SyncStatus{
		InFlight:     false,
		LocalVersion: version,
		LastSyncAt:   c.clock(),
		LastUpdated:  updated,
	}
	if err != nil {
		c.status.LastError = err.Error()
	}
	c.mu.Unlock()
	return updated
}

func (c *SyncCoordinator) run(ctx context.Context) (bool, int64, error) {
	local, err := c.cache.LocalVersion(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("read local version: %w", err)
	}

	remote, err := c.source.FetchCollectionVersion(ctx)
	if err != nil {
		if local > 0 {
			c.logger.Warn("remote version unavailable, staying offline", "localVersion", local, "err", err)
			return false, local, nil
		}
		c.logger.Warn("remote version unavailable with empty cache, assuming version 1", "err", err)
		remote = 1
	}

	if local != 0 && remote <= local {
		c.logger.Debug("questions already current", "version", local)
		return false, local, nil
	}

	questions, err := c.source.FetchAllQuestions(ctx)
	if err != nil {
		return false, local, fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) == 0 {
		c.logger.Warn("remote returned no questions, keeping cache", "remoteVersion", remote)
		return false, local, nil
	}

	stamped := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return false, local, fmt.Errorf("decode questions: %w", err)
		}
		q.Version = remote
		stamped = append(stamped, q)
	}

	if err := c.cache.ReplaceQuestions(ctx, remote, stamped); err != nil {
		return false, local, fmt.Errorf("replace local questions: %w", err)
	}
	c.logger.Info("questions synced", "count", len(stamped), "version", remote)
	return true, remote, nil
}
