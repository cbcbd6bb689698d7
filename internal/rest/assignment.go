package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/metrics"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	AssignmentHandler struct {
		validate      *validator.Validate
		lockerService LockerService
	}

	LockerService interface {
		Lock(ctx context.Context, scheduleID, creatorID string, candidates []domain.LockCandidate) ([]domain.ActiveAssignment, error)
		Cancel(ctx context.Context, assignmentID string) error
	}

	LockCandidateBody struct {
		CaptionID         uint64 `json:"caption_id" validate:"required"`
		ScheduledDate     string `json:"scheduled_date" validate:"required"`
		SendHour          int    `json:"send_hour" validate:"gte=0,lte=23"`
		SelectionStrategy string `json:"selection_strategy"`
	}

	LockRequest struct {
		ScheduleID string              `json:"schedule_id" validate:"required"`
		CreatorID  string              `json:"creator_id" validate:"required"`
		Candidates []LockCandidateBody `json:"candidates" validate:"required,min=1,dive"`
	}

	lockConflictResponse struct {
		Message    string   `json:"message"`
		ScheduleID string   `json:"schedule_id"`
		CaptionIDs []uint64 `json:"conflicting_caption_ids"`
	}
)

func NewAssignmentHandler(svc LockerService) *AssignmentHandler {
	return &AssignmentHandler{
		validate:      validator.New(),
		lockerService: svc,
	}
}

// POST /api/v1/assignments/lock
//
// All-or-nothing: a single conflicting caption rejects the whole batch
// with 409 and the offending ids so the scheduler can reselect.
func (h *AssignmentHandler) Lock(c echo.Context) error {
	start := time.Now()

	var req LockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	candidates := make([]domain.LockCandidate, 0, len(req.Candidates))
	for _, cand := range req.Candidates {
		date, err := time.Parse("2006-01-02", cand.ScheduledDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid scheduled_date, expected YYYY-MM-DD"})
		}
		candidates = append(candidates, domain.LockCandidate{
			CaptionID:         cand.CaptionID,
			ScheduledDate:     date,
			SendHour:          cand.SendHour,
			SelectionStrategy: cand.SelectionStrategy,
		})
	}

	assignments, err := h.lockerService.Lock(c.Request().Context(), req.ScheduleID, req.CreatorID, candidates)
	metrics.LockLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			metrics.LockRequests.WithLabelValues("conflict").Inc()
			return c.JSON(http.StatusConflict, lockConflictResponse{
				Message:    "captions already reserved, reselect and retry",
				ScheduleID: conflict.ScheduleID,
				CaptionIDs: conflict.CaptionIDs,
			})
		}
		metrics.LockRequests.WithLabelValues("error").Inc()
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	metrics.LockRequests.WithLabelValues("locked").Inc()
	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(assignments))
}

// DELETE /api/v1/assignments/:id
func (h *AssignmentHandler) Cancel(c echo.Context) error {
	assignmentID := c.Param("id")
	if assignmentID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "assignment id is required"})
	}

	if err := h.lockerService.Cancel(c.Request().Context(), assignmentID); err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("assignment cancelled"))
}
