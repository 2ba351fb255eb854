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

	"docctl-server/internal/config"
	"docctl-server/internal/database"
	"docctl-server/internal/handler"
	"docctl-server/internal/middleware"
	"docctl-server/internal/repository"
	"docctl-server/internal/service"
	"docctl-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging.Level, cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

func newLogger(level, env string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if env == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := kivik.New("couch", cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("connect to CouchDB: %w", err)
	}
	defer client.Close()

	exists, err := client.DBExists(ctx, cfg.Database.Name)
	if err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, cfg.Database.Name); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		logger.Info("created CouchDB database", zap.String("name", cfg.Database.Name))
	}

	db, err := database.Open(ctx, cfg.SQL.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	queryStateRepo := repository.NewQueryStateRepository(client, cfg.Database.Name)
	formRepo := repository.NewFormIssueRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	bulletinRepo := repository.NewBulletinRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	}, logger.Named("ws"))

	pageSize := cfg.DocControl.PageSize
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration, logger.Named("auth"))
	userService := service.NewUserService(userRepo)
	bulletinService := service.NewBulletinService(bulletinRepo, logger.Named("bulletin"))
	queryService := service.NewQueryStateService(queryStateRepo, logger.Named("query"), pageSize)
	formService := service.NewFormIssueService(formRepo, claimRepo, wsManager, logger.Named("forms"), pageSize)
	claimService := service.NewClaimService(claimRepo, formRepo, userRepo, bulletinService, wsManager, logger.Named("claims"), pageSize)
	feedbackService := service.NewFeedbackService(feedbackRepo, userRepo, wsManager, logger.Named("feedback"), pageSize)
	supplierService := service.NewSupplierService(supplierRepo, wsManager, logger.Named("suppliers"), pageSize)
	purchaseService := service.NewPurchaseService(purchaseRepo, supplierRepo, claimRepo,
		service.PurchaseForms{Request: cfg.DocControl.PurchaseFormNo, Acceptance: cfg.DocControl.AcceptanceFormNo},
		wsManager, logger.Named("purchases"), pageSize)

	v := handler.NewValidator()
	handlers := handler.Handlers{
		Auth:     handler.NewAuthHandler(authService, v, logger),
		User:     handler.NewUserHandler(userService, v, logger),
		Form:     handler.NewFormHandler(formService, queryService, v, logger),
		Claim:    handler.NewClaimHandler(claimService, queryService, v, logger),
		Bulletin: handler.NewBulletinHandler(bulletinService, v, logger),
		Feedback: handler.NewFeedbackHandler(feedbackService, queryService, v, logger),
		Supplier: handler.NewSupplierHandler(supplierService, queryService, v, logger),
		Purchase: handler.NewPurchaseHandler(purchaseService, queryService, v, logger),
	}
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.JWT.Secret,
		cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, logger.Named("ws"))

	r := mux.NewRouter()

	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware(logger.Named("http")))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		api.Use(limiter.Middleware())
	}

	handler.RegisterRoutes(api, handlers, cfg.JWT.Secret)

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsManager.Run(gctx)
		return nil
	})

	if limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case now := <-ticker.C:
					limiter.Sweep(now)
				}
			}
		})
	}

	g.Go(func() error {
		logger.Info("starting docctl server",
			zap.String("addr", addr),
			zap.String("env", cfg.Server.Env),
			zap.String("sqlite", cfg.SQL.Path),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"docctl-server"}`))
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"Document Control Server API","version":"1.0.0","endpoints":{"/api/v1/auth/login":"POST","/api/v1/forms":"GET (protected)","/api/v1/claims":"GET, POST (protected)","/ws":"GET (websocket)"}}`))
}
