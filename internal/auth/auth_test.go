package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func testUser(role models.Role) *models.User {
	return &models.User{
		ID:       "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Username: "alice",
		Role:     role,
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("Hash must not equal the password")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("Correct password should match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("Wrong password should not match")
	}
	if CheckPassword("not-a-hash", "s3cret") {
		t.Error("Garbage hash should not match")
	}
}

func TestIssueAndVerify(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.Issue(testUser(models.RoleAdmin))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != "7c9e6679-7425-40de-944b-e07fc1f90ae7" {
		t.Errorf("Unexpected user id %q", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("Unexpected username %q", claims.Username)
	}
	if !claims.IsAdmin {
		t.Error("Expected admin flag")
	}
}

func TestVerify_Expired(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewTokenManager("secret", time.Hour).WithClock(func() time.Time { return issued })

	token, err := m.Issue(testUser(models.RoleUser))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	later := m.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	if _, err := later.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

// tamper alters the payload segment so the signature no longer matches
func tamper(token string) string {
	parts := strings.Split(token, ".")
	parts[1] = parts[1] + "e30"
	return strings.Join(parts, ".")
}

func TestVerify_Rejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := m.Issue(testUser(models.RoleUser))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other := NewTokenManager("other-secret", time.Hour)
	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": "x",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		m     *TokenManager
		token string
	}{
		{"empty", m, ""},
		{"garbage", m, "not.a.token"},
		{"wrong secret", other, token},
		{"tampered", m, tamper(token)},
		{"alg none", m, noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.m.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
