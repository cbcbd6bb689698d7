package rest

import (
	"net/http"

	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"
	"github.com/kyle-eros/eros-scheduling-sub002/domain"

	"github.com/labstack/echo/v4"
)

type SelectionAdminHandler struct {
	cfgRepo selection.ConfigRepository
}

func NewSelectionAdminHandler(cfgRepo selection.ConfigRepository) *SelectionAdminHandler {
	return &SelectionAdminHandler{
		cfgRepo: cfgRepo,
	}
}

// GET /api/v1/admin/selection/config?segment=PREMIUM
func (h *SelectionAdminHandler) GetConfig(c echo.Context) error {
	ctx := c.Request().Context()
	segment := c.QueryParam("segment")

	if segment == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "segment is required",
		})
	}

	cfg, ok, err := h.cfgRepo.GetConfig(ctx, segment)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "config not found",
		})
	}

	return c.JSON(http.StatusOK, cfg)
}

// PUT /api/v1/admin/selection/config
// body: SelectionConfig JSON
func (h *SelectionAdminHandler) UpsertConfig(c echo.Context) error {
	ctx := c.Request().Context()

	var body domain.SelectionConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid body: " + err.Error(),
		})
	}
	if body.Segment == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "segment is required",
		})
	}

	if err := h.cfgRepo.UpsertConfig(ctx, body); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
	})
}
