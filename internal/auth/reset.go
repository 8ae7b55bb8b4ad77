package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/University-Of-Livingstonia/ems/internal/repository"
)

const resetPurpose = "password_reset"

// RequestPasswordReset issues a signed, expiring reset token for the
// account behind email. An unknown email yields an empty token and no
// error, so the caller can answer identically either way and not reveal
// whether the address is registered.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	claims := jwt.MapClaims{
		"sub":     strconv.FormatInt(user.ID, 10),
		"purpose": resetPurpose,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(m.opts.ResetTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.opts.ResetSecret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}

	m.record(ctx, user.ID, user.Username, "password_reset_requested", Client{})

	return token, nil
}

// VerifyResetToken validates a reset token and returns the user id it was
// issued for.
func (m *Manager) VerifyResetToken(tokenStr string) (int64, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.opts.ResetSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidResetToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidResetToken
	}
	if purpose, _ := claims["purpose"].(string); purpose != resetPurpose {
		return 0, ErrInvalidResetToken
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidResetToken
	}
	return id, nil
}

// ResetPassword verifies the token and stores a new password hash. The
// new password goes through the same rules as registration.
func (m *Manager) ResetPassword(ctx context.Context, tokenStr, password, confirm string) error {
	userID, err := m.VerifyResetToken(tokenStr)
	if err != nil {
		return err
	}

	var violations []string
	switch {
	case password == "":
		violations = append(violations, "password is required")
	case len(password) < minPasswordLength:
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if password != confirm {
		violations = append(violations, "passwords do not match")
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := m.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	m.record(ctx, user.ID, user.Username, "password_reset", Client{})

	return nil
}
