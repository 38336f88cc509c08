package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unidata/survey-platform-backend/internal"
	"unidata/survey-platform-backend/internal/campaign"
	"unidata/survey-platform-backend/internal/chat"
	"unidata/survey-platform-backend/internal/config"
	"unidata/survey-platform-backend/internal/cors"
	"unidata/survey-platform-backend/internal/interpreter"
	"unidata/survey-platform-backend/internal/jwt"
	"unidata/survey-platform-backend/internal/trace"
	"unidata/survey-platform-backend/internal/user"
	"unidata/survey-platform-backend/internal/voice"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/middleware"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.6.1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var AppName = "no-app-name"

var Version = "no-version"

var BuildTime = "no-build-time"

var CommitHash = "no-commit-hash"

var Environment = "no-env"

func main() {
	AppName = os.Getenv("APP_NAME")
	if AppName == "" {
		AppName = "survey-platform-backend"
	}

	if BuildTime == "no-build-time" {
		now := time.Now()
		BuildTime = "not provided (now: " + now.Format(time.RFC3339) + ")"
	}

	Environment = os.Getenv("ENV")
	if Environment == "" {
		Environment = "no-env"
	}

	appMetadata := []zap.Field{
		zap.String("app_name", AppName),
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit_hash", CommitHash),
		zap.String("environment", Environment),
	}

	cfg, cfgLog := config.Load()
	err := cfg.Validate()
	if err != nil {
		switch {
		case errors.Is(err, config.ErrDatabaseURLRequired):
			title := "Database URL is required"
			message := "Please set the DATABASE_URL environment variable or provide a config file with the database_url key."
			log.Fatal(EarlyApplicationFailed(title, message))
		case errors.Is(err, config.ErrGenAIKeyRequired):
			title := "Generative AI API key is required"
			message := "Please set the GENAI_API_KEY environment variable or provide a config file with the genai_key key."
			log.Fatal(EarlyApplicationFailed(title, message))
		default:
			log.Fatalf("Failed to validate config: %v, exiting...", err)
		}
	}

	logger, err := initLogger(&cfg, appMetadata)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v, exiting...", err)
	}

	cfgLog.FlushToZap(logger)

	if cfg.Secret == config.DefaultSecret && !cfg.Debug {
		logger.Warn("Default secret detected in production environment, replace it with a secure random string")
		cfg.Secret = uuid.New().String()
	}

	logger.Info("Starting application...")

	logger.Info("Starting database migration...")

	err = databaseutil.MigrationUp(cfg.MigrationSource, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to run database migration", zap.Error(err))
	}

	dbPool, err := initDatabasePool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	shutdown, err := initOpenTelemetry(AppName, Version, BuildTime, CommitHash, Environment, cfg.OtelCollectorUrl)
	if err != nil {
		logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}

	validator := internal.NewValidator()
	problemWriter := internal.NewProblemWriter()

	// ============================================
	// Service
	// ============================================

	userService := user.NewService(logger, dbPool)
	jwtService := jwt.NewService(logger, dbPool, cfg.Secret, cfg.AccessTokenExpiration, cfg.RefreshTokenExpiration)
	campaignService := campaign.NewService(logger, dbPool)

	interpreterClient, err := interpreter.NewGemini(context.Background(), logger, cfg.GenAIKey)
	if err != nil {
		logger.Fatal("Failed to initialize generative AI client", zap.Error(err))
	}

	chatManager := chat.NewManager(logger, interpreterClient)
	voiceDialer := voice.NewLiveDialer(logger, cfg.LiveEndpoint, cfg.GenAIKey)

	// ============================================
	// Handler
	// ============================================

	userHandler := user.NewHandler(logger, validator, problemWriter, userService, jwtService)
	authHandler := jwt.NewHandler(logger, validator, problemWriter, *jwtService, userService)
	campaignHandler := campaign.NewHandler(logger, validator, problemWriter, campaignService)
	interpreterHandler := interpreter.NewHandler(logger, validator, problemWriter, interpreterClient)
	chatHandler := chat.NewHandler(logger, validator, problemWriter, chatManager)
	voiceHandler := voice.NewHandler(logger, validator, problemWriter, voiceDialer)

	// ============================================
	// Middleware
	// ============================================

	traceMiddleware := trace.NewMiddleware(logger, cfg.Debug)
	corsMiddleware := cors.NewMiddleware(logger, cfg.AllowOrigins)
	jwtMiddleware := jwt.NewMiddleware(logger, *jwtService, userService, problemWriter)

	// Basic Middleware (Tracing and Recovery)
	basicMiddleware := middleware.NewSet(traceMiddleware.RecoverMiddleware)
	basicMiddleware = basicMiddleware.Append(traceMiddleware.TraceMiddleware)

	// Auth Middleware
	authMiddleware := middleware.NewSet(traceMiddleware.RecoverMiddleware)
	authMiddleware = authMiddleware.Append(traceMiddleware.TraceMiddleware)
	authMiddleware = authMiddleware.Append(jwtMiddleware.Authenticate)

	// HTTP Server
	mux := http.NewServeMux()

	// Health check route
	mux.Handle("GET /api/healthz", basicMiddleware.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			logger.Error("Failed to write response", zap.Error(err))
		}
	}))

	// ============================================
	// Account routes
	// ============================================

	mux.Handle("POST /api/users/register", basicMiddleware.HandlerFunc(userHandler.RegisterHandler))
	mux.Handle("GET /api/users/me", authMiddleware.HandlerFunc(userHandler.MeHandler))

	mux.Handle("POST /api/auth/login", basicMiddleware.HandlerFunc(authHandler.LoginHandler))
	mux.Handle("POST /api/auth/refresh/{refreshToken}", basicMiddleware.HandlerFunc(authHandler.RefreshHandler))

	// ============================================
	// Campaign routes
	// ============================================

	mux.Handle("POST /api/campaigns", authMiddleware.HandlerFunc(campaignHandler.CreateHandler))
	mux.Handle("GET /api/campaigns", authMiddleware.HandlerFunc(campaignHandler.ListHandler))
	mux.Handle("GET /api/campaigns/matches", authMiddleware.HandlerFunc(campaignHandler.MatchesHandler))
	mux.Handle("GET /api/campaigns/{campaignId}", authMiddleware.HandlerFunc(campaignHandler.GetHandler))

	// ============================================
	// Survey design routes
	// ============================================

	// One-shot generation
	// ----------------------
	mux.Handle("POST /api/surveys/analyze", authMiddleware.HandlerFunc(interpreterHandler.AnalyzeHandler))
	mux.Handle("POST /api/surveys/generate", authMiddleware.HandlerFunc(interpreterHandler.GenerateHandler))
	mux.Handle("POST /api/surveys/refine", authMiddleware.HandlerFunc(interpreterHandler.RefineHandler))

	// Conversational refinement
	// ----------------------
	mux.Handle("POST /api/chat/sessions", authMiddleware.HandlerFunc(chatHandler.OpenHandler))
	mux.Handle("GET /api/chat/sessions/{sessionId}", authMiddleware.HandlerFunc(chatHandler.GetHandler))
	mux.Handle("POST /api/chat/sessions/{sessionId}/turns", authMiddleware.HandlerFunc(chatHandler.TurnHandler))
	mux.Handle("DELETE /api/chat/sessions/{sessionId}", authMiddleware.HandlerFunc(chatHandler.CloseHandler))

	// Voice refinement
	// ----------------------
	mux.Handle("GET /api/voice/stream", authMiddleware.HandlerFunc(voiceHandler.StreamHandler))

	// End of API routes
	// ============================================
	// handle interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Expired refresh tokens pile up otherwise.
	go refreshTokenJanitor(ctx, logger, jwtService)

	// CORS and Entry Point
	entrypoint := corsMiddleware.HandlerFunc(mux.ServeHTTP)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: entrypoint,
	}

	go func() {
		logger.Info("Starting listening request", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Fail to start server with error", zap.Error(err))
		}
	}()

	// wait for context close
	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := shutdown(otelCtx); err != nil {
		logger.Error("Forced to shutdown OpenTelemetry", zap.Error(err))
	}

	logger.Info("Successfully shutdown")
}

func refreshTokenJanitor(ctx context.Context, logger *zap.Logger, jwtService *jwt.Service) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := jwtService.DeleteExpiredRefreshTokens(ctx)
			if err != nil {
				logger.Warn("Failed to delete expired refresh tokens", zap.Error(err))
				continue
			}
			if deleted > 0 {
				logger.Info("Deleted expired refresh tokens", zap.Int64("count", deleted))
			}
		}
	}
}

func initLogger(cfg *config.Config, appMetadata []zap.Field) (*zap.Logger, error) {
	var err error
	var logger *zap.Logger
	if cfg.Debug {
		logger, err = logutil.ZapDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		logger.Info("Running in debug mode", appMetadata...)
	} else {
		logger, err = logutil.ZapProductionConfig().Build()
		if err != nil {
			return nil, err
		}

		logger = logger.With(appMetadata...)
	}
	defer func() {
		err := logger.Sync()
		if err != nil {
			zap.S().Errorw("Failed to sync logger", zap.Error(err))
		}
	}()

	return logger, nil
}

func initDatabasePool(databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}
	return dbPool, nil
}

func initOpenTelemetry(appName, version, buildTime, commitHash, environment, otelCollectorUrl string) (func(context.Context) error, error) {
	ctx := context.Background()

	serviceName := semconv.ServiceNameKey.String(appName)
	serviceVersion := semconv.ServiceVersionKey.String(version)
	serviceNamespace := semconv.ServiceNamespaceKey.String("unidata")
	serviceCommitHash := attribute.String("service.commit_hash", commitHash)
	serviceEnvironment := semconv.DeploymentEnvironmentKey.String(environment)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			serviceName,
			serviceVersion,
			serviceNamespace,
			serviceCommitHash,
			serviceEnvironment,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if otelCollectorUrl != "" {
		conn, err := initGrpcConn(otelCollectorUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}

		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
		options = append(options, sdktrace.WithSpanProcessor(bsp))
	}

	tracerProvider := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

func initGrpcConn(target string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	return conn, nil
}

func EarlyApplicationFailed(title, action string) string {
	result := `
-----------------------------------------
Application Failed to Start
-----------------------------------------

# What's wrong?
%s

# How to fix it?
%s

`

	result = fmt.Sprintf(result, title, action)
	return result
}
