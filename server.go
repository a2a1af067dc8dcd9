package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-hub/internal/config"
	"chat-hub/internal/db"
	"chat-hub/internal/handlers"
	"chat-hub/internal/middleware"
	"chat-hub/internal/observability"
	"chat-hub/internal/rabbitmq"
	"chat-hub/internal/repositories"
	"chat-hub/internal/telemetry"
	"chat-hub/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func runServer(parent context.Context, cfg config.Config, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	publisher := rabbitmq.NewAsyncPublisher(rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange), 0)
	observability.SetPublisher(publisher)
	logger.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit_logs.chat_hub", cfg.ServiceName, cfg.Environment)

	var (
		archiveWriter  *repositories.ArchiveWriter
		archiveCounter handlers.ArchiveCounter
	)
	if cfg.DBDSN != "" {
		database, err := db.Connect(cfg.DBDSN)
		if err != nil {
			logger.Warn("message archive disabled", "error", err)
		} else {
			defer database.Close()
			archive := repositories.NewPostgresArchive(database)
			archiveWriter = repositories.NewArchiveWriter(archive, cfg.SendBuffer*4, logger)
			archiveCounter = archive
		}
	}

	hub := ws.NewHub(ws.Options{
		HistoryCap:    cfg.HistoryCap,
		HistoryReplay: cfg.HistoryReplay,
		ReplayPace:    cfg.ReplayPace,
		TypingTimeout: cfg.TypingTimeout,
		OfflineGrace:  cfg.OfflineGrace,
		Logger:        logger,
		Archive:       archiveWriter,
		Audit:         audit,
	})
	scheduler := ws.NewScheduler(hub, ws.SchedulerOptions{
		TypingSweep: cfg.TypingSweepInterval,
		Purge:       cfg.PurgeInterval,
		Status:      cfg.StatusInterval,
		Logger:      logger,
	})

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)
	go scheduler.Run(hubCtx)
	if archiveWriter != nil {
		go archiveWriter.Run(hubCtx)
	}

	router := newRouter(cfg, hub, archiveCounter, audit, logger)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("chat hub listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", "error", err)
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	stopHub()
	hub.Wait()
	scheduler.Wait()
	if archiveWriter != nil {
		archiveWriter.Wait()
	}
	if err := publisher.Close(); err != nil {
		logger.Warn("publisher close", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", "error", err)
	}
	logger.Info("chat hub stopped")
	return runErr
}

func newRouter(cfg config.Config, hub *ws.Hub, archive handlers.ArchiveCounter, audit *telemetry.AuditEmitter, logger *slog.Logger) *gin.Engine {
	if cfg.Environment != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	chatWS := ws.NewChatWebSocketHandler(hub, ws.HandlerOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		SendBuffer:     cfg.SendBuffer,
		MaxMessageSize: cfg.MaxMessageSize,
		Logger:         logger,
	})
	stats := handlers.NewStatsHandler(hub, archive)

	router.GET("/ws", chatWS.Handle)
	router.GET("/stats", stats.Stats)
	router.GET("/health", stats.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, hub, audit, cfg.DebugRoutes)
	return router
}
