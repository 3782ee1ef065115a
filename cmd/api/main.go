package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/scamguard/internal/application"
	appanalysis "github.com/bryanwahyu/scamguard/internal/application/analysis"
	appauth "github.com/bryanwahyu/scamguard/internal/application/auth"
	"github.com/bryanwahyu/scamguard/internal/config"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
	"github.com/bryanwahyu/scamguard/internal/domain/users"
	"github.com/bryanwahyu/scamguard/internal/infra/ai/gemini"
	openaiclient "github.com/bryanwahyu/scamguard/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/scamguard/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/scamguard/internal/infra/db/postgres"
	"github.com/bryanwahyu/scamguard/internal/infra/httpserver"
	"github.com/bryanwahyu/scamguard/internal/infra/identity"
	minioStore "github.com/bryanwahyu/scamguard/internal/infra/storage"
	"github.com/bryanwahyu/scamguard/internal/middleware"
	"github.com/bryanwahyu/scamguard/internal/session"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database (mysql default, postgres opsional)
	checkers := map[string]middleware.HealthChecker{}

	var usersRepo users.Repository
	var analysisRepo domain.Repository

	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		usersRepo = postgresp.NewUserRepository(db)
		analysisRepo = postgresp.NewAnalysisRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		usersRepo = mysqlp.NewUserRepository(db)
		analysisRepo = mysqlp.NewAnalysisRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// init minio (opsional)
	var artifacts domain.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
	}

	// init model client
	var model domain.Client
	switch cfg.AI.Provider {
	case "openai":
		model = openaiclient.NewClient(cfg.AI.APIKey, cfg.AI.Model)
	default:
		model = &gemini.Client{APIKey: cfg.AI.APIKey, Model: cfg.AI.Model}
	}

	// init services
	sessions := session.NewManager([]byte(cfg.Auth.JWTSecret), session.DefaultTTL)
	authSvc := &appauth.Service{
		Users:    usersRepo,
		Google:   identity.NewGoogleVerifier(cfg.Auth.GoogleAudience),
		Apple:    identity.NewAppleVerifier(cfg.Auth.AppleAudience),
		Sessions: sessions,
		Clock:    application.SystemClock{},
	}
	analysisSvc := &appanalysis.Service{
		Model:     model,
		Repo:      analysisRepo,
		Artifacts: artifacts,
		Clock:     application.SystemClock{},
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Mount("/", httpserver.NewRouter(analysisSvc, authSvc, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
