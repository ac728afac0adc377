package server

import (
	"io"
	"net/http"

	"github.com/existflow/tasko/internal/logger"
	"github.com/labstack/echo/v4"
)

func lookupTable(c echo.Context) (tableSpec, error) {
	t, ok := tables[c.Param("table")]
	if !ok {
		return tableSpec{}, httpError(http.StatusNotFound, apiError{Message: "unknown table " + c.Param("table")})
	}
	return t, nil
}

// handleSelect returns every row of the table visible to the session user,
// narrowed by column=value query parameters
func (s *Server) handleSelect(c echo.Context) error {
	t, err := lookupTable(c)
	if err != nil {
		return err
	}

	filters := make(map[string]string)
	for name, vals := range c.QueryParams() {
		if len(vals) > 0 {
			filters[name] = vals[0]
		}
	}

	query, args := t.buildSelect(filters, sessionUser(c))
	var rows []byte
	if err := s.db.QueryRowContext(c.Request().Context(), query, args...).Scan(&rows); err != nil {
		return dbError(c, err)
	}
	return c.JSONBlob(http.StatusOK, rows)
}

// handleInsert creates one row. Owner columns are set from the session.
func (s *Server) handleInsert(c echo.Context) error {
	t, err := lookupTable(c)
	if err != nil {
		return err
	}
	if t.noInsert {
		return fail(c, http.StatusMethodNotAllowed, t.name+" rows are created at signup")
	}

	cols, vals, err := readRow(c, t)
	if err != nil {
		return err
	}
	if err := checkOpenSessions(cols, vals); err != nil {
		return err
	}

	userID := sessionUser(c)
	query, args := t.buildInsert(cols, vals, userID)
	if _, err := s.db.ExecContext(c.Request().Context(), query, args...); err != nil {
		return dbError(c, err)
	}
	s.log.Debug("Row inserted", logger.F("table", t.name), logger.F("user", userID))
	return c.NoContent(http.StatusCreated)
}

// handleUpdate sets the given columns on one row in the user's scope
func (s *Server) handleUpdate(c echo.Context) error {
	t, err := lookupTable(c)
	if err != nil {
		return err
	}

	cols, vals, err := readRow(c, t)
	if err != nil {
		return err
	}
	if err := checkOpenSessions(cols, vals); err != nil {
		return err
	}

	query, args := t.buildUpdate(cols, vals, c.Param("id"), sessionUser(c))
	if query == "" {
		return c.NoContent(http.StatusNoContent)
	}
	res, err := s.db.ExecContext(c.Request().Context(), query, args...)
	if err != nil {
		return dbError(c, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return c.NoContent(http.StatusNoContent)
	}

	if t.rejected != nil {
		var exists bool
		query, args := t.buildExists(c.Param("id"), sessionUser(c))
		if err := s.db.QueryRowContext(c.Request().Context(), query, args...).Scan(&exists); err != nil {
			return dbError(c, err)
		}
		if exists {
			s.log.Warn("Update refused", logger.F("table", t.name), logger.F("id", c.Param("id")))
			return t.rejected
		}
	}
	return fail(c, http.StatusNotFound, "row not found")
}

// handleDelete removes one row in the user's scope
func (s *Server) handleDelete(c echo.Context) error {
	t, err := lookupTable(c)
	if err != nil {
		return err
	}
	if t.noInsert {
		return fail(c, http.StatusMethodNotAllowed, t.name+" rows cannot be deleted")
	}

	query, args := t.buildDelete(c.Param("id"), sessionUser(c))
	res, err := s.db.ExecContext(c.Request().Context(), query, args...)
	if err != nil {
		return dbError(c, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fail(c, http.StatusNotFound, "row not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func readRow(c echo.Context, t tableSpec) ([]string, []any, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, nil, httpError(http.StatusBadRequest, apiError{Message: "invalid request"})
	}
	cols, vals, err := t.decodeRow(body)
	if err != nil {
		return nil, nil, httpError(http.StatusBadRequest, apiError{Code: codeInvalidText, Message: err.Error()})
	}
	return cols, vals, nil
}

// checkOpenSessions rejects a task write carrying more than one running
// session. The error mirrors a unique violation so clients treat it the
// same way as the database constraint it stands in for.
func checkOpenSessions(cols []string, vals []any) error {
	i := indexOf(cols, "time_tracking")
	if i < 0 {
		return nil
	}
	n, err := openSessions(vals[i])
	if err != nil {
		return httpError(http.StatusBadRequest, apiError{Code: codeInvalidText, Message: "invalid time_tracking: " + err.Error()})
	}
	if n > 1 {
		return httpError(http.StatusConflict, apiError{
			Code:    codeUniqueViolation,
			Message: "task already has an open time-tracking session",
			Details: "time_tracking carries more than one session without an end time",
			Hint:    "stop the running session before starting another",
		})
	}
	return nil
}
