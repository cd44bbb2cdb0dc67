package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-backend/internal/api"
	"blog-backend/internal/auth"
	"blog-backend/internal/blogstore"
	"blog-backend/internal/config"
	"blog-backend/internal/storage"
)

func main() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	jwtExpiry, err := cfg.GetJWTExpiry()
	if err != nil {
		log.Fatalf("Invalid JWT expiry: %v", err)
	}

	credStore, err := auth.NewStore(cfg.Auth.UsersFile)
	if err != nil {
		log.Fatalf("Failed to open credential store: %v", err)
	}

	jwtManager := auth.NewManager([]byte(cfg.JWT.SecretKey), jwtExpiry)
	authSvc := auth.NewService(credStore, jwtManager)

	blogStore, err := blogstore.New(cfg.Data.Dir)
	if err != nil {
		log.Fatalf("Failed to open blog store: %v", err)
	}

	backend, err := storage.NewBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	router, err := api.NewRouter(authSvc, blogStore, backend, cfg)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s (storage: %s)", server.Addr, backend.GetName())
		var err error
		if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
