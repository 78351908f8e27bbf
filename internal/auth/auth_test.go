package auth

import (
	"errors"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestOperatorVerify(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	op := Operator{Login: "admin", PasswordHash: hash}

	if err := op.Verify("admin", "pw"); err != nil {
		t.Fatalf("expected valid credentials, got %v", err)
	}
	if err := op.Verify("someone", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid login, got %v", err)
	}
	if err := op.Verify("admin", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid password, got %v", err)
	}
	if err := (Operator{Login: "admin"}).Verify("admin", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected operator without hash to reject, got %v", err)
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{Login: "admin", Role: RoleOperator}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.Login != claims.Login || parsed.Role != claims.Role || parsed.Subject != "admin" {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{Login: "admin", Role: RoleOperator}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected signature mismatch")
	}

	expired, err := GenerateToken("secret-a", Claims{Login: "admin"}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-a", expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
