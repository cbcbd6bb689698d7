package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/app/echo-server/metrics"
	"github.com/kyle-eros/eros-scheduling-sub002/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

type (
	SelectionHandler struct {
		validate         *validator.Validate
		selectionService SelectionService
	}

	SelectionService interface {
		Select(ctx context.Context, req domain.SelectionRequest) (domain.SelectionResult, error)
		SelectBatch(ctx context.Context, reqs []domain.SelectionRequest) []domain.SelectionResult
	}

	SelectionRequestBody struct {
		CreatorID         string         `json:"creator_id" validate:"required"`
		CountNeeded       int            `json:"count_needed"`
		LookbackDays      int            `json:"lookback_days"`
		BehavioralSegment string         `json:"behavioral_segment" validate:"omitempty,oneof=BUDGET EXPLORATORY STANDARD PREMIUM LUXURY"`
		TierQuotas        map[string]int `json:"price_tier_quota_map,omitempty"`
		TargetDate        string         `json:"target_date,omitempty"`
	}

	BatchSelectionRequest struct {
		Requests []SelectionRequestBody `json:"requests" validate:"required,min=1,dive"`
	}
)

func NewSelectionHandler(svc SelectionService) *SelectionHandler {
	return &SelectionHandler{
		validate:         validator.New(),
		selectionService: svc,
	}
}

func (b SelectionRequestBody) toDomain() (domain.SelectionRequest, error) {
	req := domain.SelectionRequest{
		CreatorID:         b.CreatorID,
		CountNeeded:       b.CountNeeded,
		LookbackDays:      b.LookbackDays,
		BehavioralSegment: b.BehavioralSegment,
		TierQuotas:        b.TierQuotas,
	}
	if b.TargetDate != "" {
		t, err := time.Parse("2006-01-02", b.TargetDate)
		if err != nil {
			return domain.SelectionRequest{}, err
		}
		req.TargetDate = t
	}
	return req, nil
}

// POST /api/v1/selections
func (h *SelectionHandler) Select(c echo.Context) error {
	start := time.Now()

	var body SelectionRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	req, err := body.toDomain()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid target_date, expected YYYY-MM-DD"})
	}

	result, err := h.selectionService.Select(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	metrics.SelectionDuration.Observe(time.Since(start).Seconds())
	metrics.SelectionTotal.Inc()
	if result.Reason != "" {
		metrics.PartialSelections.Inc()
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

// POST /api/v1/selections/batch
func (h *SelectionHandler) SelectBatch(c echo.Context) error {
	start := time.Now()

	var body BatchSelectionRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	reqs := make([]domain.SelectionRequest, 0, len(body.Requests))
	for _, r := range body.Requests {
		req, err := r.toDomain()
		if err != nil {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid target_date, expected YYYY-MM-DD"})
		}
		reqs = append(reqs, req)
	}

	results := h.selectionService.SelectBatch(c.Request().Context(), reqs)

	metrics.SelectionDuration.Observe(time.Since(start).Seconds())
	metrics.SelectionTotal.Add(float64(len(results)))

	return c.JSON(http.StatusOK, fres.Response.StatusOK(results))
}
