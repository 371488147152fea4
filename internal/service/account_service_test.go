package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/auth"
	"github.com/JaeTrim/Traffic-AI/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t.TempDir())
	ctx := context.Background()

	token, err := f.svc.Auth.Register(ctx, &models.Credentials{Username: " alice ", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	claims, err := f.svc.Auth.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.Username != "alice" || claims.IsAdmin {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	stored, _ := f.users.GetByID(ctx, claims.UserID)
	if stored == nil || stored.Role != models.RoleUser {
		t.Fatalf("Expected stored user with role user, got %+v", stored)
	}
	if stored.PasswordHash == "s3cret" || !auth.CheckPassword(stored.PasswordHash, "s3cret") {
		t.Error("Password must be stored hashed")
	}

	if _, err := f.svc.Auth.Login(ctx, &models.Credentials{Username: "alice", Password: "s3cret"}); err != nil {
		t.Errorf("Login failed: %v", err)
	}
}

func TestRegister_Rejections(t *testing.T) {
	f := newFixture(t.TempDir())
	ctx := context.Background()
	if _, err := f.svc.Auth.Register(ctx, &models.Credentials{Username: "Alice", Password: "pw"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		creds    models.Credentials
		wantKind apperrors.Kind
	}{
		{"empty username", models.Credentials{Password: "pw"}, apperrors.KindClientInput},
		{"empty password", models.Credentials{Username: "bob"}, apperrors.KindClientInput},
		{"taken, different case", models.Credentials{Username: "alice", Password: "pw"}, apperrors.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Auth.Register(ctx, &tt.creds)
			if got := apperrors.KindOf(err); got != tt.wantKind {
				t.Errorf("Expected %s, got %s (%v)", tt.wantKind, got, err)
			}
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t.TempDir())
	ctx := context.Background()
	f.svc.Auth.Register(ctx, &models.Credentials{Username: "alice", Password: "right"})

	for _, creds := range []models.Credentials{
		{Username: "alice", Password: "wrong"},
		{Username: "nobody", Password: "right"},
	} {
		_, err := f.svc.Auth.Login(ctx, &creds)
		if apperrors.KindOf(err) != apperrors.KindClientInput || err.Error() != "Invalid credentials" {
			t.Errorf("Expected invalid credentials for %s, got %v", creds.Username, err)
		}
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	f := newFixture(t.TempDir())
	past := f.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	token, err := past.Issue(&models.User{ID: ownerID, Username: "alice"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = f.svc.Auth.VerifyToken(context.Background(), token)
	if apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Errorf("Expected unauthorized, got %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t.TempDir())
	f.users.Create(context.Background(), &models.User{ID: ownerID, Username: "alice", Role: models.RoleAdmin})

	user, err := f.svc.Auth.CurrentUser(context.Background(), ownerID)
	if err != nil || user.Role != models.RoleAdmin {
		t.Fatalf("Expected admin user, got %+v (%v)", user, err)
	}

	_, err = f.svc.Auth.CurrentUser(context.Background(), otherUserID)
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestPromoteAndRevoke(t *testing.T) {
	f := newFixture(t.TempDir())
	ctx := context.Background()
	f.users.Create(ctx, &models.User{ID: ownerID, Username: "admin", Role: models.RoleAdmin})
	f.users.Create(ctx, &models.User{ID: otherUserID, Username: "bob", Role: models.RoleUser})

	promoted, err := f.svc.User.Promote(ctx, "bob")
	if err != nil || promoted.Role != models.RoleAdmin {
		t.Fatalf("Promote failed: %+v (%v)", promoted, err)
	}
	if ok, _ := f.svc.User.IsAdmin(ctx, otherUserID); !ok {
		t.Error("bob should now be admin")
	}

	revoked, err := f.svc.User.Revoke(ctx, ownerID, otherUserID)
	if err != nil || revoked.Role != models.RoleUser {
		t.Fatalf("Revoke failed: %+v (%v)", revoked, err)
	}
	if ok, _ := f.svc.User.IsAdmin(ctx, otherUserID); ok {
		t.Error("bob should no longer be admin")
	}
}

func TestUserAdmin_Rejections(t *testing.T) {
	f := newFixture(t.TempDir())
	ctx := context.Background()
	f.users.Create(ctx, &models.User{ID: ownerID, Username: "admin", Role: models.RoleAdmin})

	tests := []struct {
		name     string
		call     func() error
		wantKind apperrors.Kind
	}{
		{"promote without username", func() error { _, err := f.svc.User.Promote(ctx, " "); return err }, apperrors.KindClientInput},
		{"promote unknown user", func() error { _, err := f.svc.User.Promote(ctx, "ghost"); return err }, apperrors.KindNotFound},
		{"revoke self", func() error { _, err := f.svc.User.Revoke(ctx, ownerID, ownerID); return err }, apperrors.KindClientInput},
		{"revoke without id", func() error { _, err := f.svc.User.Revoke(ctx, ownerID, ""); return err }, apperrors.KindClientInput},
		{"revoke unknown user", func() error { _, err := f.svc.User.Revoke(ctx, ownerID, otherUserID); return err }, apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperrors.KindOf(tt.call()); got != tt.wantKind {
				t.Errorf("Expected %s, got %s", tt.wantKind, got)
			}
		})
	}

	if u, _ := f.users.GetByID(ctx, ownerID); u.Role != models.RoleAdmin {
		t.Error("Self revocation must leave the role unchanged")
	}
}

func TestListUsersSortedByName(t *testing.T) {
	f := newFixture(t.TempDir())
	ctx := context.Background()
	for i, name := range []string{"carol", "alice", "bob"} {
		id := []string{ownerID, otherUserID, collectionID}[i]
		f.users.Create(ctx, &models.User{ID: id, Username: name, Role: models.RoleUser})
	}

	users, err := f.svc.User.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(users) != 3 || users[0].Username != "alice" || users[2].Username != "carol" {
		t.Errorf("Unexpected order: %v, %v, %v", users[0].Username, users[1].Username, users[2].Username)
	}
}
