package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyhub/config/database"
	"studyhub/internal/access"
	"studyhub/internal/cache"
	"studyhub/internal/coalesce"
	docHandler "studyhub/internal/document"
	"studyhub/internal/document/model"
	"studyhub/internal/document/repository"
	"studyhub/internal/document/service"
	"studyhub/internal/share"
	"studyhub/pkg/logger"
	"studyhub/router"
	"studyhub/socket"

	"github.com/joho/godotenv"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	db := database.Connect()
	defer db.Close()

	authz, err := access.NewAuthorizer()
	if err != nil {
		logger.Sugar.Fatalf("Failed to initialize authorizer: %v", err)
	}

	repo := repository.NewDocumentRepository(db)
	docService := service.NewDocumentService(repo, authz)
	shareService := share.NewService(repo, authz)

	// Debounced durable writes for live editing sessions.
	coalescer := coalesce.New(
		func(docID string, field coalesce.Field, value string) error {
			patch := model.Patch{}
			switch field {
			case coalesce.FieldTitle:
				patch.Title = &value
			case coalesce.FieldContent:
				patch.Content = &value
			}
			return repo.Update(docID, patch)
		},
		coalesce.WithErrorHandler(func(docID string, field coalesce.Field, _ string, err error) {
			logger.Sugar.Errorf("Failed to flush %s of doc %s: %v", field, docID, err)
		}),
	)

	sessionCache := cache.New()
	hub := socket.NewHub(docService, authz, sessionCache, coalescer)
	go hub.Run()

	handler := docHandler.NewDocumentHandler(docService, shareService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.Setup(handler, hub),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("Backend listening on :%s", port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Sugar.Fatalf("Server error: %v", err)

	case sig := <-shutdown:
		logger.Sugar.Infof("Received signal %v, starting graceful shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Sugar.Errorf("Graceful shutdown failed: %v", err)
			srv.Close()
		}

		// Pending debounced edits must reach the store before exit.
		coalescer.Close()
		logger.Sugar.Info("Server stopped gracefully")
	}
}
