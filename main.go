package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"taller-backend/billing"
	"taller-backend/controller"
	"taller-backend/dal"
	"taller-backend/infrastructure"
	"taller-backend/middelware"
	"taller-backend/models"
	"taller-backend/repository"
	"taller-backend/services"
	"taller-backend/storage"
	"taller-backend/tracing"
	"taller-backend/utils"
	"taller-backend/utils/logger"
	"taller-backend/worker"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var config *models.Config

func Init() {
	var err error
	config, err = utils.GetConfig()
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	Init()
	appLog := logger.NewLogger(config.LogLevel, config.LogFormat)
	appLog.Infof("Starting %s %s (%s)", config.AppName, config.AppVersion, config.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, config, appLog)
	if err != nil {
		appLog.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer shutdownTracer()

	db, err := dal.NewDynamoDBClient(config, appLog)
	if err != nil {
		appLog.Fatalf("Failed to initialize DynamoDB client: %v", err)
	}
	if err := infrastructure.NewTableSetup(db, config, appLog).EnsureTables(ctx); err != nil {
		appLog.Fatalf("Failed to set up tables: %v", err)
	}

	photoStore, err := storage.NewMinioStorage(ctx, config, appLog)
	if err != nil {
		appLog.Fatalf("Failed to initialize photo storage: %v", err)
	}

	repo := repository.NewRepository(db, photoStore, config, appLog)
	calculator := billing.NewCalculator(config.TaxRate)

	intake := services.NewIntakeService(repo, repo.Orphans, calculator, config, appLog)
	lifecycle := services.NewLifecycleService(repo, calculator, appLog)
	photos := services.NewPhotoService(repo, config, appLog)

	reaper, err := worker.NewReaper(repo.Orphans, repo, config, appLog.WithFields(map[string]interface{}{"component": "orphan_reaper"}))
	if err != nil {
		appLog.Fatalf("Failed to create orphan reaper: %v", err)
	}
	if err := reaper.Start(); err != nil {
		appLog.Fatalf("Failed to start orphan reaper: %v", err)
	}
	defer reaper.Stop()

	if config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	logging := middelware.NewLoggingMiddleware(appLog)
	r.Use(
		logging.Recovery(),
		otelgin.Middleware(config.AppName),
		middelware.NewCORSMiddleware(config).CORS(),
		logging.StructuredLogger(),
	)

	jwt := middelware.NewJWTManager(config, appLog)
	controller.NewController(config, intake, lifecycle, photos, jwt, appLog).RegisterRoutes(r, config.BasePath)

	srv := &http.Server{
		Addr:              config.AppHost + ":" + config.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Infof("🚀 Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Errorf("Server shutdown failed: %v", err)
	}
}
