package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/api"
	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/amarjeet4296/hcn-email-management/internal/cli"
	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/database"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.WithModule("main")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := database.Initialize(cfg.DatabasePath, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Check if running CLI command
	if len(os.Args) > 1 {
		cli.Execute(db, cfg)
		return
	}

	for _, problem := range cfg.Validate() {
		log.Warn(problem)
	}

	created, err := services.NewUserService(db).EnsureDefaultAdmin(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to create default admin: %v", err)
	}
	if created {
		log.Warnf("Created user '%s' with the configured admin password; change it after first login", services.DefaultAdminUsername)
	}

	authManager, err := middleware.NewAuthManager(cfg.DataDir, cfg.SecretKey, cfg.Algorithm, cfg.TokenExpiry())
	if err != nil {
		log.Fatalf("Failed to initialize authentication: %v", err)
	}

	process, mail := services.BuildProcessService(db, cfg)
	router := api.SetupRouter(api.Deps{
		DB:      db,
		Config:  cfg,
		Process: process,
		Mail:    mail,
		Auth:    authManager,
	})

	var scheduler *services.ProcessScheduler
	if cfg.Schedule != "" {
		scheduler = services.NewProcessScheduler(process, cfg.Schedule)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Invalid schedule %q: %v", cfg.Schedule, err)
		}
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: router,
	}

	go func() {
		log.Infof("Starting HCN mail server on %s", cfg.ListenAddr())
		log.Infof("Workbook: %s (sheet %s)", cfg.ExcelFilePath, cfg.SheetName)
		log.Infof("Database path: %s", cfg.DatabasePath)
		log.Infof("Classifier: %s", services.NewClassifierFromConfig(cfg).Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
}
