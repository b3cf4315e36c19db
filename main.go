package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/ender-tasks/internal/api"
	"github.com/isdelr/ender-tasks/internal/auth"
	"github.com/isdelr/ender-tasks/internal/config"
	"github.com/isdelr/ender-tasks/internal/logger"
	"github.com/isdelr/ender-tasks/internal/mailer"
	"github.com/isdelr/ender-tasks/internal/monitoring"
	"github.com/isdelr/ender-tasks/internal/services"
	"github.com/isdelr/ender-tasks/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	if cfg.GeneratedKey {
		log.Warn().Msg("JWT_SECRET is not set; using a random secret, tokens will not survive a restart")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(issuer)
	taskService := services.NewTaskService()

	// Push every task change to the owner's open connections.
	taskService.OnChange(func(ev services.TaskEvent) {
		hub.BroadcastTo(ev.Task.UserID, websocket.Encode(ev.Type, ev.Task))
	})

	// Set up and run the overdue monitor
	var reminders monitoring.MailSender
	if cfg.SMTP.Enabled() {
		reminders = mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
		log.Info().Str("smtp_host", cfg.SMTP.Host).Msg("Overdue reminder emails enabled")
	}
	overdueMonitor, err := monitoring.NewOverdueMonitor(cfg.OverdueSpec, taskService, userService, hub, reminders)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create overdue monitor")
	}
	go overdueMonitor.Run()

	// Set up router
	router := api.NewRouter(hub, userService, taskService, cfg.AllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	overdueMonitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
