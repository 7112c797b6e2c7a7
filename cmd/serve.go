package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ai-collection/server/internal/assistant"
	"ai-collection/server/internal/auth"
	"ai-collection/server/internal/collection"
	"ai-collection/server/internal/media"
	"ai-collection/server/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.serve(ctx)
		},
	}
}

func (a *App) serve(ctx context.Context) error {
	cfg := a.cfg

	b, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	uploader, err := media.New(cfg.Media)
	if err != nil {
		return fmt.Errorf("failed to set up media uploader: %w", err)
	}

	if cfg.AI.OpenAI.APIKey == "" {
		log.Warn("No OpenAI API key provided. Assistant endpoints will be unavailable.")
	}
	promptAssistant := assistant.NewClient(cfg.AI.OpenAI)

	provider, err := auth.NewProvider(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to set up authentication: %w", err)
	}

	hub := web.NewNoticeHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	registry := web.NewRegistry(func(owner string) (*collection.Syncer, error) {
		cache, err := b.cache(cfg.Cache, owner)
		if err != nil {
			return nil, err
		}
		return collection.NewSyncer(collection.Deps{
			Gateway:   b.gateway,
			Cache:     cache,
			Uploader:  uploader,
			Assistant: promptAssistant,
		}, nil), nil
	}, hub)
	defer registry.Watch(provider)()

	handlers := web.NewHandlers(provider, registry, hub, cfg.Server.MaxUploadBytes)
	router := web.NewRouter(handlers, web.RouterOptions{Metrics: cfg.Metrics.Enabled})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}

	log.Info("Server stopped")
	return nil
}
