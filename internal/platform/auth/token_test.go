package auth

import (
	"testing"
	"time"

	"deployd/internal/platform/config"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(config.AdminConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})

	token, err := svc.Generate("ops", []string{"history:read"}, 0)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if claims.Subject != "ops" {
		t.Errorf("subject = %q, want ops", claims.Subject)
	}
	if len(claims.Scopes) != 1 || claims.Scopes[0] != "history:read" {
		t.Errorf("scopes = %v", claims.Scopes)
	}
	if claims.Issuer != "deployd" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestTokenExpired(t *testing.T) {
	svc := NewTokenService(config.AdminConfig{JWTSecret: "test-secret"})

	token, err := svc.Generate("ops", nil, -time.Minute)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, err := svc.Validate(token); err == nil {
		t.Error("expected an expired token to be rejected")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenService(config.AdminConfig{JWTSecret: "secret-a", TokenTTL: time.Hour})
	verifier := NewTokenService(config.AdminConfig{JWTSecret: "secret-b", TokenTTL: time.Hour})

	token, err := issuer.Generate("ops", nil, 0)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, err := verifier.Validate(token); err == nil {
		t.Error("expected a token signed with a different secret to be rejected")
	}
}

func TestTokenUnconfiguredSecret(t *testing.T) {
	svc := NewTokenService(config.AdminConfig{})
	if _, err := svc.Generate("ops", nil, 0); err == nil {
		t.Error("expected Generate to fail without a configured secret")
	}
	if _, err := svc.Validate("x.y.z"); err == nil {
		t.Error("expected Validate to fail without a configured secret")
	}
}
