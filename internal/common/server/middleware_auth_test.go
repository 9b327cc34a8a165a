package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SmartParkVision/SmartParkVision/internal/common/auth"
	"github.com/SmartParkVision/SmartParkVision/internal/common/config"
)

func TestJWTAuthMiddlewareAndRBAC(t *testing.T) {
	authCfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "smartparkvision",
		Audience:  "smartparkvision",
		RBAC: map[string][]string{
			"/api/reset-system": {"admin"},
			"/api/status":       {},
		},
	}

	adminToken, _, err := auth.GenerateAccessToken(authCfg, "op-1", []string{"operator", "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	var seenSubject string
	handler := Chain(
		JWTAuthMiddleware(authCfg, nil),
		RBACMiddleware(authCfg),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ai, ok := AuthFromContext(r.Context())
		if !ok {
			t.Fatalf("missing auth info in ctx")
		}
		seenSubject = ai.Subject
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/reset-system", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected allow, got status=%d body=%s", rec.Code, rec.Body.String())
	}
	if seenSubject != "op-1" {
		t.Fatalf("subject mismatch: %s", seenSubject)
	}

	// 只有 operator 角色的 token，应被 RBAC 拒绝
	opToken, _, err := auth.GenerateAccessToken(authCfg, "op-2", []string{"operator"}, time.Hour)
	if err != nil {
		t.Fatalf("sign token2: %v", err)
	}
	req2 := httptest.NewRequest(http.MethodPost, "/api/reset-system", nil)
	req2.Header.Set("Authorization", "Bearer "+opToken)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec2.Code)
	}

	// 没有 token 直接拒绝
	req3 := httptest.NewRequest(http.MethodPost, "/api/reset-system", nil)
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)

	if rec3.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec3.Code)
	}
}

func TestJWTAuthMiddlewarePublicPath(t *testing.T) {
	authCfg := config.AuthConfig{
		Enabled:     true,
		JWTSecret:   "test-secret",
		PublicPaths: []string{"/healthz"},
	}

	handler := Chain(
		JWTAuthMiddleware(authCfg, nil),
		RBACMiddleware(authCfg),
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected public path to pass, got %d", rec.Code)
	}
}
