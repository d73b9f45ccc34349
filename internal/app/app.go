package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mongoadapter "github.com/RayZar23/ton-nft-market1/internal/adapter/mongo"
	natsadapter "github.com/RayZar23/ton-nft-market1/internal/adapter/nats"
	redisadapter "github.com/RayZar23/ton-nft-market1/internal/adapter/redis"
	"github.com/RayZar23/ton-nft-market1/internal/app/config"
	"github.com/RayZar23/ton-nft-market1/internal/platform/clock"
	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
	httpport "github.com/RayZar23/ton-nft-market1/internal/port/http"
	"github.com/RayZar23/ton-nft-market1/internal/service"
	natsio "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	cfg         *config.Config
	log         logger.Logger
	server      *httpport.Server
	sweeper     *service.Sweeper
	notifier    *service.AsyncNotifier
	mongoClient *mongo.Client
	redisClient *redis.Client
	natsConn    *natsio.Conn
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s", cfg.Env, cfg.HTTPServer.Port)

	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	appLogger.Info("MongoDB client initialized")

	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized")

	natsConn, err := natsadapter.NewConnection(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS connection: %w", err)
	}
	appLogger.Info("NATS connection established")

	publisher, err := natsadapter.NewNATSPublisher(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS publisher: %w", err)
	}

	nftRepo := mongoadapter.NewNFTRepository(mongoClient, cfg.MongoDB)
	txRepo := mongoadapter.NewTransactionRepository(mongoClient, cfg.MongoDB)
	notificationRepo := mongoadapter.NewNotificationRepository(mongoClient, cfg.MongoDB)

	notifier := service.NewNotifier(
		notificationRepo,
		publisher,
		appLogger,
		cfg.Notification.Subject,
		cfg.Notification.QueueSize,
	)
	broadcaster := redisadapter.NewEventBroadcaster(redisClient, cfg.Notification.Channel)
	bidLimiter := redisadapter.NewRateLimiter(redisClient, "auction-bid", cfg.RateLimit.BidLimit, cfg.RateLimit.BidWindow)
	clk := clock.New()

	// One lock table for both engines so auction and giveaway mutations on
	// the same NFT are mutually exclusive in-process.
	itemLocks := service.NewLockTable()

	auctionService := service.NewAuctionService(
		nftRepo, txRepo, notifier, broadcaster, clk, appLogger, itemLocks,
		service.AuctionServiceConfig{
			MinDuration:     cfg.Auction.MinDuration,
			MaxDuration:     cfg.Auction.MaxDuration,
			MinBidIncrease:  cfg.Auction.MinBidIncrease,
			ConflictRetries: cfg.Auction.ConflictRetries,
		},
	)
	giveawayService := service.NewGiveawayService(
		nftRepo, txRepo, notifier, broadcaster, clk, appLogger, itemLocks, nil,
		service.GiveawayServiceConfig{
			MinDuration:     cfg.Giveaway.MinDuration,
			MaxDuration:     cfg.Giveaway.MaxDuration,
			ConflictRetries: cfg.Auction.ConflictRetries,
		},
	)
	sweeper := service.NewSweeper(auctionService, giveawayService, clk, appLogger, cfg.Auction.SweepInterval)

	auctionHandler := httpport.NewAuctionHandler(auctionService, sweeper, bidLimiter, appLogger)
	giveawayHandler := httpport.NewGiveawayHandler(giveawayService, appLogger)
	notificationHandler := httpport.NewNotificationHandler(notificationRepo, appLogger)

	router := httpport.NewRouter(auctionHandler, giveawayHandler, notificationHandler, cfg.Auth.JWTSecret)
	server := httpport.NewServer(
		appLogger,
		cfg.HTTPServer.Port,
		cfg.HTTPServer.ReadTimeout,
		cfg.HTTPServer.WriteTimeout,
		router,
	)

	return &App{
		cfg:         cfg,
		log:         appLogger,
		server:      server,
		sweeper:     sweeper,
		notifier:    notifier,
		mongoClient: mongoClient,
		redisClient: redisClient,
		natsConn:    natsConn,
	}, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	a.sweeper.Start()

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	} else {
		a.log.Info("HTTP server stopped")
	}

	a.sweeper.Stop()
	a.notifier.Close()

	if a.natsConn != nil {
		a.natsConn.Close()
		a.log.Info("NATS connection closed")
	}

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed")
		}
	}

	a.log.Info("Application shut down successfully")
}
