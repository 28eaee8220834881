package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestHMACService_GenerateAndValidate(t *testing.T) {
	svc := NewHMACService("test-secret", time.Hour)

	token, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if !claims.ExpiredAt.After(claims.IssuedAt) {
		t.Fatalf("expiry must be after issue time")
	}
}

func TestHMACService_WrongSecretRejected(t *testing.T) {
	token, err := NewHMACService("secret-a", time.Hour).GenerateToken("admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = NewHMACService("secret-b", time.Hour).ValidateToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestHMACService_ExpiredToken(t *testing.T) {
	svc := NewHMACService("test-secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestHMACService_GarbageToken(t *testing.T) {
	svc := NewHMACService("test-secret", time.Hour)
	if _, err := svc.ValidateToken("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestHMACService_EmptySecretCannotSign(t *testing.T) {
	svc := NewHMACService("", time.Hour)
	if _, err := svc.GenerateToken("admin"); err == nil {
		t.Fatalf("empty secret must not produce tokens")
	}
}
