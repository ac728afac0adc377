package server

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/existflow/tasko/internal/logger"
	"github.com/labstack/echo/v4"
)

// handleInvitationByToken resolves an invitation link. It needs no session
// because the invitee may not have an account yet. Expiry and status are
// returned as stored; the client decides whether the invitation is usable.
func (s *Server) handleInvitationByToken(c echo.Context) error {
	token := c.Param("token")
	if len(token) < 16 {
		return fail(c, http.StatusBadRequest, "token required")
	}

	var row []byte
	err := s.db.QueryRowContext(c.Request().Context(),
		`SELECT row_to_json(i) FROM invitations i WHERE token = $1`, token,
	).Scan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, http.StatusNotFound, "invitation not found")
	}
	if err != nil {
		return dbError(c, err)
	}

	s.log.Info("Invitation resolved", logger.F("token_prefix", token[:8]))
	return c.JSONBlob(http.StatusOK, row)
}
