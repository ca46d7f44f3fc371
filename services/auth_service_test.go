package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegisterAndSignIn(t *testing.T) {
	st := newFakeStore()
	svc := NewAuthService(&fakeUserRepo{st})

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "amal",
		Name:     "Amal",
		Email:    "amal@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked in register response")
	}

	signed, err := svc.SignIn(context.Background(), SignInInput{Username: "amal", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if signed.ID != user.ID {
		t.Errorf("signed in as %d, want %d", signed.ID, user.ID)
	}

	if _, err := svc.SignIn(context.Background(), SignInInput{Username: "amal", Password: "wrong"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrAuthInvalidCredentials", err)
	}
	if _, err := svc.SignIn(context.Background(), SignInInput{Username: "ghost", Password: "whatever"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrAuthInvalidCredentials", err)
	}
}

func TestRegisterRejectsDuplicatesAndShortPasswords(t *testing.T) {
	st := newFakeStore()
	svc := NewAuthService(&fakeUserRepo{st})

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "a", Email: "a@x.com", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short password err = %v, want ErrPasswordTooShort", err)
	}

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "amal", Email: "amal@example.com", Password: "long-enough"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Username: "other", Email: "amal@example.com", Password: "long-enough"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("dup email err = %v, want ErrEmailTaken", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Username: "amal", Email: "other@example.com", Password: "long-enough"}); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("dup username err = %v, want ErrUsernameTaken", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	st := newFakeStore()
	svc := NewAuthService(&fakeUserRepo{st})

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "amal", Email: "amal@example.com", Password: "old-password"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Неизвестный email не выдаёт себя ошибкой.
	token, err := svc.GeneratePasswordResetToken(context.Background(), "ghost@example.com")
	if err != nil || token != "" {
		t.Fatalf("token for unknown email = (%q, %v), want empty and nil", token, err)
	}

	token, err = svc.GeneratePasswordResetToken(context.Background(), "amal@example.com")
	if err != nil {
		t.Fatalf("GeneratePasswordResetToken: %v", err)
	}
	if token == "" {
		t.Fatal("empty reset token")
	}

	if err := svc.ResetPasswordByToken(context.Background(), "bogus", "new-password"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("bogus token err = %v, want ErrInvalidResetToken", err)
	}
	if err := svc.ResetPasswordByToken(context.Background(), token, "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short password err = %v, want ErrPasswordTooShort", err)
	}
	if err := svc.ResetPasswordByToken(context.Background(), token, "new-password"); err != nil {
		t.Fatalf("ResetPasswordByToken: %v", err)
	}

	if _, err := svc.SignIn(context.Background(), SignInInput{Username: "amal", Password: "new-password"}); err != nil {
		t.Errorf("sign in with new password: %v", err)
	}
	if _, err := svc.SignIn(context.Background(), SignInInput{Username: "amal", Password: "old-password"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Errorf("old password still works: %v", err)
	}
}

func TestResetTokenExpiry(t *testing.T) {
	st := newFakeStore()
	repo := &fakeUserRepo{st}
	svc := NewAuthService(repo)

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "amal", Email: "amal@example.com", Password: "old-password"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := svc.GeneratePasswordResetToken(context.Background(), "amal@example.com")
	if err != nil {
		t.Fatalf("GeneratePasswordResetToken: %v", err)
	}

	// Просроченный токен отклоняется.
	st.mu.Lock()
	for _, u := range st.users {
		expired := time.Now().Add(-time.Minute)
		u.PasswordResetExpiresAt = &expired
	}
	st.mu.Unlock()

	if err := svc.ResetPasswordByToken(context.Background(), token, "new-password"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expired token err = %v, want ErrInvalidResetToken", err)
	}
}
