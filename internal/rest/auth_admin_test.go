package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/pkg/utils"

	"github.com/labstack/echo/v4"
)

type fakeTokenStore struct {
	issuedCaller string
	issuedRole   string
	issuedToken  string
	issuedTTL    time.Duration
	revokedToken string
}

func (f *fakeTokenStore) Issue(ctx context.Context, callerID, role, token, ip string, ttl time.Duration) error {
	f.issuedCaller = callerID
	f.issuedRole = role
	f.issuedToken = token
	f.issuedTTL = ttl
	return nil
}

func (f *fakeTokenStore) RevokeToken(ctx context.Context, callerID, token string) error {
	f.revokedToken = token
	return nil
}

func TestIssueToken_MintsAndStores(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	store := &fakeTokenStore{}
	handler := NewAuthAdminHandler(store)

	body := `{"caller_id":"scheduler-1","role":"SERVICE"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/tokens", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := handler.IssueToken(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		CallerID string `json:"caller_id"`
		Token    string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Token == "" || resp.Token != store.issuedToken {
		t.Fatalf("response token %q does not match stored token %q", resp.Token, store.issuedToken)
	}
	if store.issuedTTL != 24*time.Hour {
		t.Errorf("default ttl %v, want 24h", store.issuedTTL)
	}

	claims, err := utils.ParseJWT(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.CallerID != "scheduler-1" || claims.Role != "SERVICE" {
		t.Errorf("claims %s/%s, want scheduler-1/SERVICE", claims.CallerID, claims.Role)
	}
}

func TestIssueToken_RejectsMissingCaller(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	handler := NewAuthAdminHandler(&fakeTokenStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/tokens", strings.NewReader(`{"role":"SERVICE"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := handler.IssueToken(echo.New().NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestRevokeToken(t *testing.T) {
	store := &fakeTokenStore{}
	handler := NewAuthAdminHandler(store)

	body := `{"caller_id":"scheduler-1","token":"tok-abc"}`
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/auth/tokens", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := handler.RevokeToken(echo.New().NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if store.revokedToken != "tok-abc" {
		t.Errorf("revoked %q, want tok-abc", store.revokedToken)
	}
}
