package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/existflow/tasko/internal/logger"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 30 * 24 * time.Hour

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        json.RawMessage `json:"user"`
}

func (r signupRequest) validate() string {
	if strings.TrimSpace(r.Name) == "" || r.Email == "" || r.Password == "" {
		return "name, email, and password required"
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return "invalid email address"
	}
	if len(r.Password) < 8 {
		return "password must be at least 8 characters"
	}
	return ""
}

// handleSignup creates an account with its profile and signs it in. The
// first account on a fresh database becomes admin.
func (s *Server) handleSignup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("bcrypt failed", logger.Err(err))
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	ctx := c.Request().Context()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError(c, err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id`,
		req.Email, string(hash),
	).Scan(&userID)
	if err != nil {
		return dbError(c, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, role, theme)
		VALUES ($1, $2, $3,
			CASE WHEN EXISTS (SELECT 1 FROM profiles) THEN 'member' ELSE 'admin' END,
			'system')`,
		userID, strings.TrimSpace(req.Name), req.Email,
	)
	if err != nil {
		return dbError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return dbError(c, err)
	}

	s.log.Info("User registered", logger.F("user", userID))
	return s.respondWithSession(c, userID)
}

// handleToken exchanges email and password for a session
func (s *Server) handleToken(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request")
	}

	// Find user
	var userID, passwordHash string
	err := s.db.QueryRowContext(c.Request().Context(), `
		SELECT id, password_hash FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(req.Email)),
	).Scan(&userID, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return dbError(c, err)
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	s.log.Info("User signed in", logger.F("user", userID))
	return s.respondWithSession(c, userID)
}

// handleLogout revokes the presented session
func (s *Server) handleLogout(c echo.Context) error {
	token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	if _, err := s.db.ExecContext(c.Request().Context(), `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return dbError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleUser returns the session user's profile
func (s *Server) handleUser(c echo.Context) error {
	profile, err := s.profileJSON(c.Request().Context(), sessionUser(c))
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		return dbError(c, err)
	}
	return c.JSONBlob(http.StatusOK, profile)
}

func (s *Server) respondWithSession(c echo.Context, userID string) error {
	ctx := c.Request().Context()
	token, expiresAt, err := s.createSession(ctx, userID)
	if err != nil {
		return dbError(c, err)
	}
	profile, err := s.profileJSON(ctx, userID)
	if err != nil {
		return dbError(c, err)
	}
	return c.JSON(http.StatusOK, authResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        profile,
	})
}

func (s *Server) profileJSON(ctx context.Context, userID string) (json.RawMessage, error) {
	var profile []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT row_to_json(p) FROM profiles p WHERE id = $1`, userID,
	).Scan(&profile)
	return profile, err
}

// createSession creates a new session for a user
func (s *Server) createSession(ctx context.Context, userID string) (string, time.Time, error) {
	// Generate token
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", time.Time{}, err
	}
	token := hex.EncodeToString(tokenBytes)

	expiresAt := time.Now().Add(sessionTTL).UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token, expires_at)
		VALUES ($1, $2, $3)`,
		userID, token, expiresAt,
	)

	return token, expiresAt, err
}
