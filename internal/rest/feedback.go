package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
)

type (
	FeedbackHandler struct {
		validate    *validator.Validate
		outcomeRepo OutcomeWriter
		runner      FeedbackRunner
	}

	OutcomeWriter interface {
		Save(ctx context.Context, outcome domain.DeliveryOutcome) (uint64, error)
	}

	// FeedbackRunner triggers one updater pass on demand.
	FeedbackRunner interface {
		RunIfIdle(ctx context.Context) (skipped bool, err error)
	}

	OutcomeRequest struct {
		CaptionID      uint64         `json:"caption_id" validate:"required"`
		CreatorID      string         `json:"creator_id" validate:"required"`
		SentCount      int64          `json:"sent_count" validate:"gte=0"`
		ViewedCount    int64          `json:"viewed_count" validate:"gte=0"`
		PurchasedCount int64          `json:"purchased_count" validate:"gte=0"`
		Earnings       float64        `json:"earnings" validate:"gte=0"`
		SentAt         time.Time      `json:"sent_at" validate:"required"`
		Context        map[string]any `json:"context,omitempty"`
	}
)

func NewFeedbackHandler(outcomeRepo OutcomeWriter, runner FeedbackRunner) *FeedbackHandler {
	return &FeedbackHandler{
		validate:    validator.New(),
		outcomeRepo: outcomeRepo,
		runner:      runner,
	}
}

// POST /api/v1/feedback/events
func (h *FeedbackHandler) Ingest(c echo.Context) error {
	var req OutcomeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	outcome := domain.DeliveryOutcome{
		CaptionID:      req.CaptionID,
		CreatorID:      req.CreatorID,
		SentCount:      req.SentCount,
		ViewedCount:    req.ViewedCount,
		PurchasedCount: req.PurchasedCount,
		Earnings:       req.Earnings,
		SentAt:         req.SentAt,
		Context:        datatypes.JSONMap(req.Context),
	}

	id, err := h.outcomeRepo.Save(c.Request().Context(), outcome)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(echo.Map{"id": id}))
}

// POST /api/v1/feedback/run
//
// Admin-only manual trigger. A pass already in flight is not interrupted;
// 202 with skipped=true tells the operator to wait.
func (h *FeedbackHandler) Run(c echo.Context) error {
	skipped, err := h.runner.RunIfIdle(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}
	if skipped {
		return c.JSON(http.StatusAccepted, fres.Response.StatusOK(echo.Map{"skipped": true}))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(echo.Map{"skipped": false}))
}
