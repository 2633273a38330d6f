package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/TPSMaidscc/chat-audit/internal/config"
	httpapi "github.com/TPSMaidscc/chat-audit/internal/http"
	"github.com/TPSMaidscc/chat-audit/internal/service"
	"github.com/TPSMaidscc/chat-audit/internal/tableau"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "chat-audit").Logger()

	var source tableau.Source
	if cfg.TableauTokenValue == "" {
		source = tableau.FileSource{Dir: cfg.TempDir}
		logger.Info().Str("dir", cfg.TempDir).Msg("no server credentials, using file source")
	} else {
		source = &tableau.Client{
			BaseURL:      cfg.TableauServerURL,
			APIVersion:   cfg.TableauAPIVersion,
			TokenName:    cfg.TableauTokenName,
			TokenValue:   cfg.TableauTokenValue,
			SiteContent:  cfg.TableauSite,
			WorkbookName: cfg.TableauWorkbook,
			HTTPClient:   &http.Client{Timeout: cfg.RequestTimeout},
			Logger:       logger,
		}
	}

	svc := &service.AuditService{
		Source: source,
		Cfg:    &cfg,
		Logger: logger,
	}

	router := httpapi.Router(cfg, svc, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
