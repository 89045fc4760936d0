package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Emerc92/futsapp-tournament-hub/models"
)

func TestRegisterUser(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), nil)
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			input   RegisterInput
			wantErr error
		}{
			{"missing email", RegisterInput{Password: "longenough"}, ErrValidationFailed},
			{"short password", RegisterInput{Email: "a@b.com", Password: "short"}, ErrPasswordTooShort},
			{"unknown role", RegisterInput{Email: "a@b.com", Password: "longenough", Role: "referee"}, ErrValidationFailed},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := svc.Register(ctx, tt.input); !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("defaults to player role", func(t *testing.T) {
		user, err := svc.Register(ctx, RegisterInput{
			FirstName: "Ada",
			Email:     "ADA@Example.com",
			Password:  "longenough",
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if user.Role != models.RolePlayer {
			t.Errorf("role = %s, want player", user.Role)
		}
		if user.Email != "ada@example.com" {
			t.Errorf("email = %s, expected lowercased", user.Email)
		}
		if user.PasswordHash == "" || user.PasswordHash == "longenough" {
			t.Error("password stored unhashed")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "longenough"})
		if !errors.Is(err, ErrAuthEmailTaken) {
			t.Errorf("err = %v, want ErrAuthEmailTaken", err)
		}
	})
}

func TestLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		Email:    "cap@example.com",
		Password: "correct horse",
		Role:     models.RoleOrganizer,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("success", func(t *testing.T) {
		user, err := svc.Login(ctx, LoginInput{Email: "cap@example.com", Password: "correct horse"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if user.PasswordHash != "" {
			t.Error("password hash leaked in login response")
		}
		if user.Role != models.RoleOrganizer {
			t.Errorf("role = %s, want organizer", user.Role)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Login(ctx, LoginInput{Email: "cap@example.com", Password: "wrong"}); !errors.Is(err, ErrAuthInvalidCredentials) {
			t.Errorf("err = %v, want ErrAuthInvalidCredentials", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		if _, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "whatever"}); !errors.Is(err, ErrAuthInvalidCredentials) {
			t.Errorf("err = %v, want ErrAuthInvalidCredentials", err)
		}
	})
}
