package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/tasko/internal/logger"
	"github.com/labstack/echo/v4"
)

const userKey = "user_id"

// requestLogger writes one entry per request through the structured logger
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		res := c.Response()
		fields := []logger.Field{
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("duration", time.Since(start).String()),
			logger.F("request_id", res.Header().Get(echo.HeaderXRequestID)),
		}
		if res.Status >= http.StatusInternalServerError {
			s.log.Error("HTTP Response", fields...)
		} else {
			s.log.Info("HTTP Response", fields...)
		}
		return nil
	}
}

// authMiddleware checks for a valid session token
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Get token from Authorization header
		auth := c.Request().Header.Get("Authorization")
		if auth == "" {
			return fail(c, http.StatusUnauthorized, "authorization required")
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token == "" {
			return fail(c, http.StatusUnauthorized, "invalid authorization format")
		}

		var (
			userID    string
			expiresAt time.Time
		)
		err := s.db.QueryRowContext(c.Request().Context(),
			`SELECT user_id, expires_at FROM sessions WHERE token = $1`, token,
		).Scan(&userID, &expiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid token")
		}
		if err != nil {
			return dbError(c, err)
		}

		if time.Now().After(expiresAt) {
			return fail(c, http.StatusUnauthorized, "token expired")
		}

		// Add user ID to context
		c.Set(userKey, userID)
		return next(c)
	}
}

func sessionUser(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}
