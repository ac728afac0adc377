// Package server is the remote persistence service: an identity endpoint
// issuing bearer sessions and a row-level scoped REST interface over the
// tasks, projects, clients, profiles, teams and invitations tables.
package server

import (
	"database/sql"
	"net/http"

	"github.com/existflow/tasko/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
)

// Server is the persistence server
type Server struct {
	db   *sql.DB
	echo *echo.Echo
	log  *logger.Logger
}

// New connects to postgres, migrates and sets up routes
func New(dbURL string) (*Server, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := newServer(db)

	// Run migrations
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func newServer(db *sql.DB) *Server {
	s := &Server{
		db:  db,
		log: logger.WithFields(logger.F("component", "server")),
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true

	e.Use(s.requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("2M"))

	// Health check
	e.GET("/health", s.handleHealth)

	// Identity
	auth := e.Group("/auth/v1")
	auth.POST("/signup", s.handleSignup)
	auth.POST("/token", s.handleToken)
	authed := auth.Group("")
	authed.Use(s.authMiddleware)
	authed.POST("/logout", s.handleLogout)
	authed.GET("/user", s.handleUser)

	// Tables
	rest := e.Group("/rest/v1")
	rest.GET("/invitations/by-token/:token", s.handleInvitationByToken)
	rows := rest.Group("")
	rows.Use(s.authMiddleware)
	rows.GET("/:table", s.handleSelect)
	rows.POST("/:table", s.handleInsert)
	rows.PATCH("/:table/:id", s.handleUpdate)
	rows.DELETE("/:table/:id", s.handleDelete)

	s.echo = e
}

// Close closes the database connection
func (s *Server) Close() error {
	return s.db.Close()
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
