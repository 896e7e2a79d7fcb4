package auth

import (
	"testing"
	"time"
)

func testManager(ttl time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		SecretKey:     "test-secret",
		TokenDuration: ttl,
		Issuer:        "ridechat-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := testManager(time.Hour)

	token, err := m.GenerateToken("user-alice", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-alice" {
		t.Errorf("expected user ID user-alice, got %s", claims.UserID)
	}
	if claims.Name != "Alice" {
		t.Errorf("expected name Alice, got %s", claims.Name)
	}
	if claims.Issuer != "ridechat-test" {
		t.Errorf("expected issuer ridechat-test, got %s", claims.Issuer)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	m := testManager(-time.Minute)

	token, err := m.GenerateToken("user-alice", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := m.ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	m := testManager(time.Hour)
	other := NewJWTManager(JWTConfig{
		SecretKey:     "another-secret",
		TokenDuration: time.Hour,
		Issuer:        "ridechat-test",
	})

	token, err := m.GenerateToken("user-alice", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := other.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	m := testManager(time.Hour)

	cases := []string{"", "not-a-token", "a.b.c"}
	for _, tc := range cases {
		if _, err := m.ValidateToken(tc); err != ErrInvalidToken {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", tc, err)
		}
	}
}
