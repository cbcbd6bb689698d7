package router

import (
	"github.com/kyle-eros/eros-scheduling-sub002/internal/middleware"
	"github.com/kyle-eros/eros-scheduling-sub002/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupSelectionRoutes(api *echo.Group, handler *rest.SelectionHandler, authRequired echo.MiddlewareFunc) {
	selections := api.Group("/selections", authRequired)

	selections.POST("", handler.Select)
	selections.POST("/batch", handler.SelectBatch)
}

func SetupAssignmentRoutes(api *echo.Group, handler *rest.AssignmentHandler, authRequired echo.MiddlewareFunc) {
	assignments := api.Group("/assignments", authRequired)

	assignments.POST("/lock", handler.Lock)
	assignments.DELETE("/:id", handler.Cancel)
}

func SetupFeedbackRoutes(api *echo.Group, handler *rest.FeedbackHandler, authRequired echo.MiddlewareFunc) {
	feedback := api.Group("/feedback", authRequired)

	feedback.POST("/events", handler.Ingest)
	feedback.POST("/run", handler.Run, middleware.AdminOnly())
}

func SetupSelectionAdminRoutes(api *echo.Group, handler *rest.SelectionAdminHandler, authRequired echo.MiddlewareFunc) {
	admin := api.Group("/admin/selection", authRequired, middleware.AdminOnly())

	admin.GET("/config", handler.GetConfig)
	admin.PUT("/config", handler.UpsertConfig)
}

func SetupAuthAdminRoutes(api *echo.Group, handler *rest.AuthAdminHandler, authRequired echo.MiddlewareFunc) {
	admin := api.Group("/admin/auth", authRequired, middleware.AdminOnly())

	admin.POST("/tokens", handler.IssueToken)
	admin.DELETE("/tokens", handler.RevokeToken)
}
