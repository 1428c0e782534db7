package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cucina/internal/config"
	"cucina/internal/db"
	"cucina/internal/db/mock"
	applog "cucina/internal/log"
	"cucina/internal/server"

	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		log.Fatalf("invalid log level: %v", err)
	}

	var database *gorm.DB
	if cfg.Database.UseMock {
		database, err = mock.New(context.Background())
		if err != nil {
			log.Fatalf("failed to initialise mock database: %v", err)
		}
	} else {
		database, err = db.Configure(cfg.Database)
		if err != nil {
			log.Fatalf("failed to configure database: %v", err)
		}
	}

	srv := server.New(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server encountered an error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	applog.Info(context.Background(), "shutting down http server")
	if err := srv.Stop(); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}
