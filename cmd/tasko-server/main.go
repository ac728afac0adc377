package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/existflow/tasko/internal/logger"
	"github.com/existflow/tasko/server"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://localhost:5432/tasko?sslmode=disable"
	}

	logCfg := logger.DefaultConfig()
	logCfg.FilePath = os.Getenv("LOG_FILE")
	logCfg.Console = true
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		logCfg.Level = logger.ParseLevel(lvl)
	}
	if err := logger.Init(logCfg); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Close()

	srv, err := server.New(dbURL)
	if err != nil {
		logger.Error("Failed to create server", logger.Err(err))
		os.Exit(1)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("Error closing server", logger.Err(err))
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down")
		srv.Close()
		os.Exit(0)
	}()

	logger.Info("tasko server starting", logger.F("port", port))
	if err := srv.Start(":" + port); err != nil {
		logger.Error("Server failed", logger.Err(err))
	}
}
