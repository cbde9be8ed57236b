package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/marketplace"
	"github.com/supportdesk/backend/internal/infrastructure/logger"
)

// syncKinds is the fan-out order of one poll tick. Question sync is
// submitted every tick like the others; its wider invocation guard is what
// throttles it to the slower cadence.
var syncKinds = []SyncJobKind{JobKindChatSync, JobKindReviewSync, JobKindQuestionSync}

// SyncCronTriggerConfig holds configuration for the poll trigger
type SyncCronTriggerConfig struct {
	// PollInterval is how often each active profile is synced
	PollInterval time.Duration
	// Stagger is the per-profile submission offset within one fan-out,
	// spreading the API load instead of hitting it for all profiles at once
	Stagger time.Duration
}

// DefaultSyncCronTriggerConfig returns default configuration
func DefaultSyncCronTriggerConfig() SyncCronTriggerConfig {
	return SyncCronTriggerConfig{
		PollInterval: time.Minute,
		Stagger:      2 * time.Second,
	}
}

// SyncCronTrigger periodically fans sync jobs out over the active profiles
type SyncCronTrigger struct {
	config      SyncCronTriggerConfig
	scheduler   *SyncScheduler
	credentials marketplace.CredentialRepository
	logger      *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncCronTrigger creates a new sync cron trigger
func NewSyncCronTrigger(
	config SyncCronTriggerConfig,
	scheduler *SyncScheduler,
	credentials marketplace.CredentialRepository,
	logger *zap.Logger,
) *SyncCronTrigger {
	return &SyncCronTrigger{
		config:      config,
		scheduler:   scheduler,
		credentials: credentials,
		logger:      logger.Named("sync_trigger"),
	}
}

// Start starts the trigger loop
func (c *SyncCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("sync trigger started",
		zap.Duration("poll_interval", c.config.PollInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (c *SyncCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop fires one fan-out per poll interval, including one at startup
func (c *SyncCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	c.fanOut(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fanOut(ctx)
		}
	}
}

// fanOut submits the sync jobs for every profile with active credentials
func (c *SyncCronTrigger) fanOut(ctx context.Context) {
	profileIDs, err := c.credentials.ActiveProfileIDs(ctx)
	if err != nil {
		c.logger.Error("failed to list active profiles", zap.Error(err))
		return
	}
	if len(profileIDs) == 0 {
		c.logger.Debug("no active profiles to sync")
		return
	}

	for i, profileID := range profileIDs {
		delay := time.Duration(i) * c.config.Stagger
		for _, kind := range syncKinds {
			if err := c.scheduler.ScheduleProfileSyncAfter(kind, profileID, delay); err != nil {
				c.logger.Warn("failed to schedule sync job",
					logger.ProfileID(profileID.String()),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
			}
		}
	}

	c.logger.Debug("sync fan-out complete", zap.Int("profiles", len(profileIDs)))
}

// isSyncKind reports whether the kind is a profile-scoped sync pass.
// Reply kinds need a ticket ID and cannot be triggered per profile.
func isSyncKind(kind SyncJobKind) bool {
	for _, k := range syncKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// TriggerManualSync submits one sync job of the given kind for every active
// profile. The HTTP interface uses this for operator-initiated passes.
func (c *SyncCronTrigger) TriggerManualSync(ctx context.Context, kind SyncJobKind) (int, error) {
	if !isSyncKind(kind) {
		return 0, ErrUnknownJobKind
	}

	profileIDs, err := c.credentials.ActiveProfileIDs(ctx)
	if err != nil {
		return 0, err
	}

	scheduled := 0
	for _, profileID := range profileIDs {
		if err := c.scheduler.ScheduleProfileSync(kind, profileID); err != nil {
			c.logger.Warn("failed to schedule manual sync",
				logger.ProfileID(profileID.String()),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	c.logger.Info("manual sync triggered",
		zap.String("kind", string(kind)),
		zap.Int("profiles_scheduled", scheduled),
	)
	return scheduled, nil
}

// TriggerProfileSync submits one sync job of the given kind for one profile
func (c *SyncCronTrigger) TriggerProfileSync(kind SyncJobKind, profileID uuid.UUID) error {
	if !isSyncKind(kind) {
		return ErrUnknownJobKind
	}
	return c.scheduler.ScheduleProfileSync(kind, profileID)
}
