package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
)

// apiError is the JSON body of every failed request. Clients read the code,
// message, details and hint and record them against the entity they wrote.
type apiError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// Postgres error codes the API passes through to clients
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
)

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, apiError{Message: message})
}

// httpError lets helpers abort a handler; echo's error handler writes body
// as the JSON response.
func httpError(status int, body apiError) *echo.HTTPError {
	return echo.NewHTTPError(status, body)
}

// dbError converts a database failure into a response. Postgres errors keep
// their code, detail and hint.
func dbError(c echo.Context, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		c.Logger().Error("db error:", err)
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	status := http.StatusInternalServerError
	switch string(pqErr.Code) {
	case codeUniqueViolation, codeForeignKeyViolation:
		status = http.StatusConflict
	case codeNotNullViolation, codeCheckViolation, codeInvalidText:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		c.Logger().Error("db error:", err)
	}
	return c.JSON(status, apiError{
		Code:    string(pqErr.Code),
		Message: pqErr.Message,
		Details: pqErr.Detail,
		Hint:    pqErr.Hint,
	})
}
