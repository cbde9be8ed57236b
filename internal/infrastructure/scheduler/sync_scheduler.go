package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/support"
	"github.com/supportdesk/backend/internal/infrastructure/logger"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// SyncJobKind identifies what a scheduled job does
type SyncJobKind string

const (
	JobKindChatSync     SyncJobKind = "chat-sync"
	JobKindReviewSync   SyncJobKind = "review-sync"
	JobKindQuestionSync SyncJobKind = "question-sync"

	JobKindChatReply     SyncJobKind = "chat-reply"
	JobKindReviewReply   SyncJobKind = "review-reply"
	JobKindQuestionReply SyncJobKind = "question-reply"
)

// IsValid returns true if the job kind is known
func (k SyncJobKind) IsValid() bool {
	switch k {
	case JobKindChatSync, JobKindReviewSync, JobKindQuestionSync,
		JobKindChatReply, JobKindReviewReply, JobKindQuestionReply:
		return true
	default:
		return false
	}
}

// replyKindByChannel maps a ticket channel to its outbound reply job kind
func replyKindByChannel(channel support.Channel) (SyncJobKind, bool) {
	switch channel {
	case support.ChannelChat:
		return JobKindChatReply, true
	case support.ChannelReview:
		return JobKindReviewReply, true
	case support.ChannelQuestion:
		return JobKindQuestionReply, true
	default:
		return "", false
	}
}

// SyncJobStatus represents the status of a scheduled job
type SyncJobStatus string

const (
	SyncJobStatusPending SyncJobStatus = "PENDING"
	SyncJobStatusRunning SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess SyncJobStatus = "SUCCESS"
	SyncJobStatusFailed  SyncJobStatus = "FAILED"
)

// SyncJob is one unit of scheduled work. Sync jobs carry a profile ID and
// fan out over its credentials; reply jobs carry the ticket whose pending
// local message needs delivering.
type SyncJob struct {
	ID        uuid.UUID
	Kind      SyncJobKind
	ProfileID uuid.UUID
	TicketID  uuid.UUID

	Status      SyncJobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewProfileSyncJob creates a sync job for one profile
func NewProfileSyncJob(kind SyncJobKind, profileID uuid.UUID, maxRetries int) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		Kind:       kind,
		ProfileID:  profileID,
		Status:     SyncJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// NewReplyJob creates an outbound reply job for one ticket
func NewReplyJob(kind SyncJobKind, ticketID uuid.UUID, maxRetries int) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		Kind:       kind,
		TicketID:   ticketID,
		Status:     SyncJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *SyncJob) Complete() {
	now := time.Now()
	j.Status = SyncJobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *SyncJob) ShouldRetry() bool {
	return j.Status == SyncJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff
func (j *SyncJob) ScheduleRetry(baseDelay time.Duration) time.Duration {
	j.RetryCount++
	j.Status = SyncJobStatusPending
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
	return delay
}

// ---------------------------------------------------------------------------
// SyncExecutor
// ---------------------------------------------------------------------------

// SyncExecutor executes one job
type SyncExecutor interface {
	Execute(ctx context.Context, job *SyncJob) error
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// Workers is the number of concurrent job workers
	Workers int
	// QueueSize is the job queue capacity
	QueueSize int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// MaxRetries is the number of retry attempts for failed jobs
	MaxRetries int
	// RetryDelay is the base delay between retries (with exponential backoff)
	RetryDelay time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Workers:    3,
		QueueSize:  100,
		JobTimeout: 5 * time.Minute,
		MaxRetries: 3,
		RetryDelay: time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxRetries < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler runs sync and reply jobs on a bounded worker pool. Delayed
// submissions (reply retries) are armed with a timer and enter the queue
// when it fires; a timer that fires after Stop finds the scheduler stopped
// and the job is dropped, which is safe because the ticket still holds its
// undelivered local message and the next sync pass re-publishes it.
type SyncScheduler struct {
	config   SyncSchedulerConfig
	executor SyncExecutor
	logger   *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*SyncJob
	maxHistory int
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, executor SyncExecutor, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncScheduler{
		config:     config,
		executor:   executor,
		logger:     logger.Named("sync_scheduler"),
		jobs:       make(chan *SyncJob, config.QueueSize),
		history:    make([]*SyncJob, 0, 100),
		maxHistory: 100,
	}, nil
}

// SetExecutor wires the job executor. The reply handlers need the scheduler
// as their retry queue while the executor routes to the handlers, so the
// executor is wired after both exist. Must be called before Start.
func (s *SyncScheduler) SetExecutor(executor SyncExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = executor
}

// Start starts the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sync scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("sync scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a job for execution
func (s *SyncScheduler) SubmitJob(job *SyncJob) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		s.logger.Debug("sync job submitted",
			logger.JobID(job.ID.String()),
			zap.String("kind", string(job.Kind)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// SubmitAfter submits a job once the delay elapses. A zero delay submits
// immediately.
func (s *SyncScheduler) SubmitAfter(job *SyncJob, delay time.Duration) error {
	if delay <= 0 {
		return s.SubmitJob(job)
	}

	nextRetry := time.Now().Add(delay)
	job.NextRetryAt = &nextRetry

	time.AfterFunc(delay, func() {
		if err := s.SubmitJob(job); err != nil {
			s.logger.Warn("dropping delayed sync job",
				logger.JobID(job.ID.String()),
				zap.String("kind", string(job.Kind)),
				zap.Error(err),
			)
		}
	})
	return nil
}

// ScheduleProfileSync submits a sync job for one profile
func (s *SyncScheduler) ScheduleProfileSync(kind SyncJobKind, profileID uuid.UUID) error {
	return s.SubmitJob(NewProfileSyncJob(kind, profileID, s.config.MaxRetries))
}

// ScheduleProfileSyncAfter submits a sync job for one profile once the
// delay elapses. The poll trigger uses this to stagger its fan-out.
func (s *SyncScheduler) ScheduleProfileSyncAfter(kind SyncJobKind, profileID uuid.UUID, delay time.Duration) error {
	return s.SubmitAfter(NewProfileSyncJob(kind, profileID, s.config.MaxRetries), delay)
}

// EnqueueReply schedules a delayed outbound reply attempt for the ticket.
// Implements the application layer's reply enqueuer port.
func (s *SyncScheduler) EnqueueReply(channel support.Channel, ticketID uuid.UUID, delay time.Duration) error {
	kind, ok := replyKindByChannel(channel)
	if !ok {
		return ErrUnknownJobKind
	}
	return s.SubmitAfter(NewReplyJob(kind, ticketID, s.config.MaxRetries), delay)
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job with timeout and bounded retry
func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	job.Start()

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if job.ProfileID != uuid.Nil {
		jobCtx, _ = logger.WithProfileID(jobCtx, s.logger, job.ProfileID.String())
	}

	err := s.executor.Execute(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("sync job failed",
			zap.Int("worker_id", workerID),
			logger.JobID(job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Error(err),
		)
		// Recorded before ScheduleRetry resets the job for its next attempt,
		// so the history keeps the failure
		s.addToHistory(job)

		if job.ShouldRetry() {
			delay := job.ScheduleRetry(s.config.RetryDelay)
			s.logger.Info("sync job scheduled for retry",
				logger.JobID(job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Duration("delay", delay),
			)
			if err := s.SubmitAfter(job, delay); err != nil {
				s.logger.Warn("failed to re-queue sync job",
					logger.JobID(job.ID.String()),
					zap.Error(err),
				)
			}
		}
		return
	}

	job.Complete()
	s.logger.Debug("sync job completed",
		zap.Int("worker_id", workerID),
		logger.JobID(job.ID.String()),
		zap.String("kind", string(job.Kind)),
	)
	s.addToHistory(job)
}

// addToHistory records a snapshot of the job, newest first. A retried job
// keeps mutating on its next attempt; copying here keeps history entries
// stable for concurrent readers. The timestamp pointers are safe to share
// because the job mutators always assign fresh ones.
func (s *SyncScheduler) addToHistory(job *SyncJob) {
	snapshot := *job

	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{&snapshot}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns recent job history, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*SyncJob, limit)
	copy(result, s.history[:limit])
	return result
}
