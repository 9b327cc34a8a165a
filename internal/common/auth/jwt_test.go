package auth

import (
	"testing"
	"time"

	"github.com/SmartParkVision/SmartParkVision/internal/common/config"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "smartparkvision",
		Audience:  "smartparkvision",
	}

	token, exp, err := GenerateAccessToken(cfg, "op-1", []string{"admin"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if exp.Before(time.Now()) {
		t.Fatalf("expected exp in future")
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "op-1" {
		t.Fatalf("subject mismatch: %s", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Fatalf("roles mismatch: %#v", claims.Roles)
	}
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret-a"}
	token, _, err := GenerateAccessToken(cfg, "op-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(config.AuthConfig{JWTSecret: "secret-b"}, token); err == nil {
		t.Fatalf("expected invalid token error")
	}
}
