package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/supportdesk/backend/internal/infrastructure/logger"
	"github.com/supportdesk/backend/internal/infrastructure/scheduler"
	"github.com/supportdesk/backend/internal/interfaces/http/dto"
)

// ManualSyncTrigger starts one sync pass of a kind over all active profiles
type ManualSyncTrigger interface {
	TriggerManualSync(ctx context.Context, kind scheduler.SyncJobKind) (int, error)
}

// JobHistoryProvider exposes recent scheduler job outcomes
type JobHistoryProvider interface {
	GetJobHistory(limit int) []*scheduler.SyncJob
}

// kindByPath maps URL segments to sync job kinds
var kindByPath = map[string]scheduler.SyncJobKind{
	"chats":     scheduler.JobKindChatSync,
	"reviews":   scheduler.JobKindReviewSync,
	"questions": scheduler.JobKindQuestionSync,
}

// SyncHandler serves the manual sync trigger and job history endpoints
type SyncHandler struct {
	trigger ManualSyncTrigger
	history JobHistoryProvider
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(trigger ManualSyncTrigger, history JobHistoryProvider) *SyncHandler {
	return &SyncHandler{
		trigger: trigger,
		history: history,
	}
}

// RegisterRoutes registers the sync routes on the API group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	sync.POST("/:kind", h.TriggerSync)
	sync.GET("/jobs", h.JobHistory)
}

// TriggerSyncResponse is the manual trigger payload
type TriggerSyncResponse struct {
	Kind              string `json:"kind"`
	ProfilesScheduled int    `json:"profiles_scheduled"`
}

// TriggerSync schedules one sync pass of the given kind for every active
// profile. It enqueues through the same path as the cron trigger, so the
// invocation guards still apply.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	kind, ok := kindByPath[c.Param("kind")]
	if !ok {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.CodeUnknownSyncKind,
			"sync kind must be one of: chats, reviews, questions"))
		return
	}

	scheduled, err := h.trigger.TriggerManualSync(c.Request.Context(), kind)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("manual sync trigger failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.CodeSyncTriggerFailed, err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(TriggerSyncResponse{
		Kind:              string(kind),
		ProfilesScheduled: scheduled,
	}))
}

// JobSummary is one history entry in the jobs payload
type JobSummary struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
}

// JobHistory returns the most recent scheduler job outcomes
func (h *SyncHandler) JobHistory(c *gin.Context) {
	jobs := h.history.GetJobHistory(50)

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, JobSummary{
			ID:         job.ID.String(),
			Kind:       string(job.Kind),
			Status:     string(job.Status),
			Error:      job.Error,
			RetryCount: job.RetryCount,
		})
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(summaries))
}
