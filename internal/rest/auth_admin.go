package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	// AuthAdminHandler provisions service-caller tokens: the JWT is minted
	// here and its session record stored in Redis so revocation takes
	// effect immediately.
	AuthAdminHandler struct {
		validate *validator.Validate
		tokens   TokenStore
	}

	TokenStore interface {
		Issue(ctx context.Context, callerID, role, token, ip string, ttl time.Duration) error
		RevokeToken(ctx context.Context, callerID, token string) error
	}

	IssueTokenRequest struct {
		CallerID string `json:"caller_id" validate:"required"`
		Role     string `json:"role" validate:"required,oneof=SERVICE ADMIN service admin"`
		TTLHours int    `json:"ttl_hours" validate:"gte=0,lte=8760"`
	}

	RevokeTokenRequest struct {
		CallerID string `json:"caller_id" validate:"required"`
		Token    string `json:"token" validate:"required"`
	}

	issuedTokenResponse struct {
		CallerID  string    `json:"caller_id"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
)

func NewAuthAdminHandler(tokens TokenStore) *AuthAdminHandler {
	return &AuthAdminHandler{
		validate: validator.New(),
		tokens:   tokens,
	}
}

// POST /api/v1/admin/auth/tokens
func (h *AuthAdminHandler) IssueToken(c echo.Context) error {
	ctx := c.Request().Context()

	var req IssueTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if req.TTLHours == 0 {
		req.TTLHours = 24
	}
	ttl := time.Duration(req.TTLHours) * time.Hour

	token, err := utils.GenerateJWT(req.CallerID, req.Role, ttl)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if err := h.tokens.Issue(ctx, req.CallerID, req.Role, token, c.RealIP(), ttl); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, issuedTokenResponse{
		CallerID:  req.CallerID,
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// DELETE /api/v1/admin/auth/tokens
func (h *AuthAdminHandler) RevokeToken(c echo.Context) error {
	ctx := c.Request().Context()

	var req RevokeTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.tokens.RevokeToken(ctx, req.CallerID, req.Token); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"revoked": true})
}
