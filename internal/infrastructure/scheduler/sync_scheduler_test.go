package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/domain/support"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

// stubExecutor records executed jobs and fails the first failCount calls
type stubExecutor struct {
	mu        sync.Mutex
	executed  []*SyncJob
	failCount int32
	calls     int32
	done      chan struct{}
}

func newStubExecutor(failCount int) *stubExecutor {
	return &stubExecutor{
		failCount: int32(failCount),
		done:      make(chan struct{}, 64),
	}
}

func (e *stubExecutor) Execute(ctx context.Context, job *SyncJob) error {
	call := atomic.AddInt32(&e.calls, 1)

	e.mu.Lock()
	e.executed = append(e.executed, job)
	e.mu.Unlock()

	defer func() { e.done <- struct{}{} }()

	if call <= atomic.LoadInt32(&e.failCount) {
		return errors.New("simulated failure")
	}
	return nil
}

func (e *stubExecutor) waitForCalls(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-e.done:
		case <-deadline:
			t.Fatalf("timed out waiting for %d executions, got %d", n, i)
		}
	}
}

func newTestScheduler(t *testing.T, executor SyncExecutor, config SyncSchedulerConfig) *SyncScheduler {
	t.Helper()
	s, err := NewSyncScheduler(config, executor, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func fastConfig() SyncSchedulerConfig {
	cfg := DefaultSyncSchedulerConfig()
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.JobTimeout = time.Second
	return cfg
}

// ---------------------------------------------------------------------------
// SyncJob Tests
// ---------------------------------------------------------------------------

func TestNewProfileSyncJob(t *testing.T) {
	profileID := uuid.New()

	job := NewProfileSyncJob(JobKindChatSync, profileID, 3)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, JobKindChatSync, job.Kind)
	assert.Equal(t, profileID, job.ProfileID)
	assert.Equal(t, SyncJobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxRetries)
	assert.Nil(t, job.StartedAt)
}

func TestSyncJobLifecycle(t *testing.T) {
	job := NewProfileSyncJob(JobKindReviewSync, uuid.New(), 3)

	job.Start()
	assert.Equal(t, SyncJobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Complete()
	assert.Equal(t, SyncJobStatusSuccess, job.Status)
	assert.NotNil(t, job.CompletedAt)
}

func TestSyncJobFail(t *testing.T) {
	job := NewProfileSyncJob(JobKindChatSync, uuid.New(), 3)
	job.Start()

	job.Fail("connection timeout")

	assert.Equal(t, SyncJobStatusFailed, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, "connection timeout", job.Error)
}

func TestSyncJobShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		status     SyncJobStatus
		retryCount int
		maxRetries int
		expected   bool
	}{
		{"failed with retries available", SyncJobStatusFailed, 0, 3, true},
		{"failed max retries reached", SyncJobStatusFailed, 3, 3, false},
		{"success never retries", SyncJobStatusSuccess, 0, 3, false},
		{"running never retries", SyncJobStatusRunning, 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewProfileSyncJob(JobKindChatSync, uuid.New(), tt.maxRetries)
			job.Status = tt.status
			job.RetryCount = tt.retryCount
			assert.Equal(t, tt.expected, job.ShouldRetry())
		})
	}
}

func TestSyncJobScheduleRetryBacksOffExponentially(t *testing.T) {
	job := NewProfileSyncJob(JobKindChatSync, uuid.New(), 5)
	base := time.Minute

	job.Status = SyncJobStatusFailed
	assert.Equal(t, time.Minute, job.ScheduleRetry(base))
	assert.Equal(t, SyncJobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)

	job.Status = SyncJobStatusFailed
	assert.Equal(t, 2*time.Minute, job.ScheduleRetry(base))

	job.Status = SyncJobStatusFailed
	assert.Equal(t, 4*time.Minute, job.ScheduleRetry(base))

	job.RetryCount = 10
	job.Status = SyncJobStatusFailed
	assert.Equal(t, 30*time.Minute, job.ScheduleRetry(base), "backoff is capped")
}

func TestReplyKindByChannel(t *testing.T) {
	kind, ok := replyKindByChannel(support.ChannelChat)
	require.True(t, ok)
	assert.Equal(t, JobKindChatReply, kind)

	kind, ok = replyKindByChannel(support.ChannelReview)
	require.True(t, ok)
	assert.Equal(t, JobKindReviewReply, kind)

	kind, ok = replyKindByChannel(support.ChannelQuestion)
	require.True(t, ok)
	assert.Equal(t, JobKindQuestionReply, kind)

	_, ok = replyKindByChannel(support.Channel("EMAIL"))
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig Tests
// ---------------------------------------------------------------------------

func TestSyncSchedulerConfigValidate(t *testing.T) {
	cfg := DefaultSyncSchedulerConfig()
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Workers = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.QueueSize = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.JobTimeout = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.MaxRetries = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}

// ---------------------------------------------------------------------------
// SyncScheduler Tests
// ---------------------------------------------------------------------------

func TestSchedulerExecutesSubmittedJob(t *testing.T) {
	executor := newStubExecutor(0)
	s := newTestScheduler(t, executor, fastConfig())

	profileID := uuid.New()
	require.NoError(t, s.ScheduleProfileSync(JobKindChatSync, profileID))

	executor.waitForCalls(t, 1, 2*time.Second)

	executor.mu.Lock()
	defer executor.mu.Unlock()
	require.Len(t, executor.executed, 1)
	assert.Equal(t, JobKindChatSync, executor.executed[0].Kind)
	assert.Equal(t, profileID, executor.executed[0].ProfileID)
}

func TestSchedulerRetriesFailedJob(t *testing.T) {
	executor := newStubExecutor(1)
	s := newTestScheduler(t, executor, fastConfig())

	require.NoError(t, s.ScheduleProfileSync(JobKindReviewSync, uuid.New()))

	executor.waitForCalls(t, 2, 3*time.Second)

	executor.mu.Lock()
	defer executor.mu.Unlock()
	require.Len(t, executor.executed, 2)
	assert.Same(t, executor.executed[0], executor.executed[1], "the same job is retried")
	assert.Equal(t, 1, executor.executed[1].RetryCount)
}

func TestSchedulerGivesUpAfterMaxRetries(t *testing.T) {
	executor := newStubExecutor(100)
	cfg := fastConfig()
	cfg.MaxRetries = 2
	s := newTestScheduler(t, executor, cfg)

	require.NoError(t, s.ScheduleProfileSync(JobKindChatSync, uuid.New()))

	executor.waitForCalls(t, 3, 3*time.Second)

	// First attempt plus two retries, then the job is abandoned
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&executor.calls))
}

func TestSchedulerRejectsJobsWhenStopped(t *testing.T) {
	executor := newStubExecutor(0)
	s, err := NewSyncScheduler(fastConfig(), executor, zap.NewNop())
	require.NoError(t, err)

	err = s.ScheduleProfileSync(JobKindChatSync, uuid.New())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestSchedulerQueueFull(t *testing.T) {
	executor := newStubExecutor(0)
	cfg := fastConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1
	s, err := NewSyncScheduler(cfg, executor, zap.NewNop())
	require.NoError(t, err)
	// Never started: no worker drains the queue
	s.isRunning = true

	require.NoError(t, s.ScheduleProfileSync(JobKindChatSync, uuid.New()))
	assert.ErrorIs(t, s.ScheduleProfileSync(JobKindChatSync, uuid.New()), ErrJobQueueFull)
}

func TestSchedulerEnqueueReplyMapsChannel(t *testing.T) {
	executor := newStubExecutor(0)
	s := newTestScheduler(t, executor, fastConfig())

	ticketID := uuid.New()
	require.NoError(t, s.EnqueueReply(support.ChannelReview, ticketID, 0))

	executor.waitForCalls(t, 1, 2*time.Second)

	executor.mu.Lock()
	defer executor.mu.Unlock()
	require.Len(t, executor.executed, 1)
	assert.Equal(t, JobKindReviewReply, executor.executed[0].Kind)
	assert.Equal(t, ticketID, executor.executed[0].TicketID)
}

func TestSchedulerEnqueueReplyDelays(t *testing.T) {
	executor := newStubExecutor(0)
	s := newTestScheduler(t, executor, fastConfig())

	start := time.Now()
	require.NoError(t, s.EnqueueReply(support.ChannelChat, uuid.New(), 50*time.Millisecond))

	executor.waitForCalls(t, 1, 2*time.Second)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSchedulerEnqueueReplyUnknownChannel(t *testing.T) {
	executor := newStubExecutor(0)
	s := newTestScheduler(t, executor, fastConfig())

	assert.ErrorIs(t, s.EnqueueReply(support.Channel("EMAIL"), uuid.New(), 0), ErrUnknownJobKind)
}

func TestSchedulerRecordsHistory(t *testing.T) {
	executor := newStubExecutor(0)
	s := newTestScheduler(t, executor, fastConfig())

	require.NoError(t, s.ScheduleProfileSync(JobKindQuestionSync, uuid.New()))
	executor.waitForCalls(t, 1, 2*time.Second)

	// History is appended after the executor returns
	require.Eventually(t, func() bool {
		return len(s.GetJobHistory(10)) == 1
	}, time.Second, 10*time.Millisecond)

	history := s.GetJobHistory(10)
	assert.Equal(t, SyncJobStatusSuccess, history[0].Status)
}

func TestSchedulerHistoryKeepsFailedAttemptAfterRetry(t *testing.T) {
	executor := newStubExecutor(1)
	s := newTestScheduler(t, executor, fastConfig())

	require.NoError(t, s.ScheduleProfileSync(JobKindChatSync, uuid.New()))
	executor.waitForCalls(t, 2, 3*time.Second)

	require.Eventually(t, func() bool {
		return len(s.GetJobHistory(10)) == 2
	}, time.Second, 10*time.Millisecond)

	// Each attempt is a frozen snapshot: the retry that succeeded must not
	// rewrite the recorded failure
	history := s.GetJobHistory(10)
	assert.Equal(t, SyncJobStatusSuccess, history[0].Status)
	assert.Equal(t, 1, history[0].RetryCount)
	assert.Equal(t, SyncJobStatusFailed, history[1].Status)
	assert.Equal(t, "simulated failure", history[1].Error)
	assert.Equal(t, 0, history[1].RetryCount)
	assert.Equal(t, history[0].ID, history[1].ID)
}

// ---------------------------------------------------------------------------
// HandlerExecutor Tests
// ---------------------------------------------------------------------------

type countingSyncer struct{ calls int32 }

func (c *countingSyncer) Sync(ctx context.Context, profileID uuid.UUID) error {
	atomic.AddInt32(&c.calls, 1)
	return nil
}

type countingDispatcher struct{ calls int32 }

func (c *countingDispatcher) Dispatch(ctx context.Context, ticketID uuid.UUID) error {
	atomic.AddInt32(&c.calls, 1)
	return nil
}

func TestHandlerExecutorRoutesByKind(t *testing.T) {
	chatSync := &countingSyncer{}
	reviewSync := &countingSyncer{}
	questionSync := &countingSyncer{}
	chatReply := &countingDispatcher{}
	reviewReply := &countingDispatcher{}
	questionReply := &countingDispatcher{}

	executor := NewHandlerExecutor(chatSync, reviewSync, questionSync, chatReply, reviewReply, questionReply)
	ctx := context.Background()

	require.NoError(t, executor.Execute(ctx, NewProfileSyncJob(JobKindChatSync, uuid.New(), 0)))
	require.NoError(t, executor.Execute(ctx, NewProfileSyncJob(JobKindReviewSync, uuid.New(), 0)))
	require.NoError(t, executor.Execute(ctx, NewProfileSyncJob(JobKindQuestionSync, uuid.New(), 0)))
	require.NoError(t, executor.Execute(ctx, NewReplyJob(JobKindChatReply, uuid.New(), 0)))
	require.NoError(t, executor.Execute(ctx, NewReplyJob(JobKindReviewReply, uuid.New(), 0)))
	require.NoError(t, executor.Execute(ctx, NewReplyJob(JobKindQuestionReply, uuid.New(), 0)))

	assert.Equal(t, int32(1), chatSync.calls)
	assert.Equal(t, int32(1), reviewSync.calls)
	assert.Equal(t, int32(1), questionSync.calls)
	assert.Equal(t, int32(1), chatReply.calls)
	assert.Equal(t, int32(1), reviewReply.calls)
	assert.Equal(t, int32(1), questionReply.calls)

	err := executor.Execute(ctx, &SyncJob{Kind: SyncJobKind("bogus")})
	assert.ErrorIs(t, err, ErrUnknownJobKind)
}
