package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"conversation-service/internal/config"
	"conversation-service/internal/db"
	grpcclient "conversation-service/internal/grpc"
	"conversation-service/internal/handlers"
	"conversation-service/internal/logging"
	"conversation-service/internal/middleware"
	"conversation-service/internal/observability"
	"conversation-service/internal/rabbitmq"
	"conversation-service/internal/repositories"
	"conversation-service/internal/telemetry"
	"conversation-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	conversations, messages, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	directory, validator, authMiddleware, closeClients, err := collaborators(cfg, logger)
	if err != nil {
		return err
	}
	defer closeClients()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	logger.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	auditor := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment, logger)

	router := ws.NewRouter(logger)
	gateway := ws.NewGateway(router, validator, logger)
	handler := handlers.NewConversationHandler(conversations, messages, directory, router, auditor, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.ServiceName),
		observability.RequestIDMiddleware(),
		observability.HTTPMetricsMiddleware(),
	)

	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/ws", gateway.Handle)
	handlers.RegisterDebugRoutes(engine, auditor, cfg.DebugRoutes)
	handler.Register(engine.Group("/", authMiddleware))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repositories.ConversationRepository, repositories.MessageRepository, func(), error) {
	if cfg.StoreBackend != config.StorePostgres {
		logger.Warn("using in-memory store, data is lost on restart")
		store := repositories.NewMemoryStore()
		return store, store, func() {}, nil
	}

	database, err := db.Connect(ctx, cfg.DBDSN, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return repositories.NewConversationRepo(database), repositories.NewMessageRepo(database), func() { database.Close() }, nil
}

func dialCollaborator(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(observability.GRPCClientMetricsUnaryInterceptor()),
	)
}

// collaborators wires the identity directory and token validation. Without
// configured addresses it falls back to development stand-ins.
func collaborators(cfg config.Config, logger *slog.Logger) (handlers.ProfileDirectory, middleware.TokenValidator, gin.HandlerFunc, func(), error) {
	var conns []*grpc.ClientConn
	closeAll := func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}

	var directory handlers.ProfileDirectory
	if cfg.UserGRPCAddr != "" {
		conn, err := dialCollaborator(cfg.UserGRPCAddr)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		conns = append(conns, conn)
		directory = grpcclient.NewUserClient(conn)
	} else {
		logger.Warn("USER_GRPC_ADDR not set, profiles resolve to placeholders")
		directory = grpcclient.NewStaticDirectory()
	}

	var validator middleware.TokenValidator
	var authMiddleware gin.HandlerFunc
	if cfg.AuthGRPCAddr != "" {
		conn, err := dialCollaborator(cfg.AuthGRPCAddr)
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, err
		}
		conns = append(conns, conn)
		validator = grpcclient.NewAuthClient(conn)
		authMiddleware = middleware.AuthMiddleware(validator)
	} else {
		logger.Warn("AUTH_GRPC_ADDR not set, trusting X-User-ID headers; never run this in production")
		validator = middleware.HeaderTrust{}
		authMiddleware = middleware.DevAuthMiddleware()
	}

	return directory, validator, authMiddleware, closeAll, nil
}
