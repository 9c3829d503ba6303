package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-service/cache"
	"marketplace-service/config"
	"marketplace-service/controllers"
	"marketplace-service/database"
	"marketplace-service/events"
	"marketplace-service/logger"
	"marketplace-service/middleware"
	"marketplace-service/repository"
	"marketplace-service/routes"
	"marketplace-service/services"
	"marketplace-service/storage"
	"marketplace-service/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.UsesDevSecret() {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- 1. Infrastructure ---

	mongoDB, err := database.NewMongo(cfg.MongoURI, cfg.DatabaseName(), log)
	if err != nil {
		log.Fatal("Failed to create MongoDB client", zap.Error(err))
	}
	repos := repository.New(mongoDB.DB)
	go func() {
		if err := mongoDB.WaitReady(ctx, repos.EnsureIndexes); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("MongoDB never became ready", zap.Error(err))
		}
	}()

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, running without cache and fan-out", zap.Error(err))
			rdb = nil
		} else {
			log.Info("Connected to Redis")
		}
	}

	metrics := middleware.NewMetrics()
	hub := ws.NewHub(rdb, log, metrics)
	if err := hub.Start(ctx); err != nil {
		log.Fatal("Failed to start realtime hub", zap.Error(err))
	}

	var uploader services.Uploader
	if cfg.StorageEnabled() {
		s3Storage, err := storage.NewS3Storage(ctx, storage.Options{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.AWSEndpoint,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			CDNDomain: cfg.CloudFrontDomain,
		})
		if err != nil {
			log.Warn("S3 unavailable, image uploads disabled", zap.Error(err))
		} else {
			uploader = s3Storage
			log.Info("S3 uploads enabled", zap.String("bucket", cfg.S3Bucket))
		}
	}

	// --- 2. Services ---

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	chatService := services.NewChatService(repos.Messages, repos.Users, hub)
	notificationService := services.NewNotificationService(repos.Notifications, hub)

	var publisher services.EventPublisher
	var producer *events.Producer
	var consumer *events.Consumer
	if cfg.KafkaEnabled() {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		consumer = events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, notificationService.HandleEvent, log)
		go consumer.Run(ctx)
		publisher = producer
		log.Info("Kafka events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		publisher = events.NewDirect(notificationService.HandleEvent)
	}

	var listingCache, supplierCache services.ListCache
	if rdb != nil {
		listingCache = cache.NewManager(rdb, "listings", cache.DefaultTTL)
		supplierCache = cache.NewManager(rdb, "suppliers", cache.DefaultTTL)
	}

	listingService := services.NewListingService(repos.Listings, repos.Suppliers, services.ListingDeps{
		Chat:     chatService,
		Events:   publisher,
		Cache:    listingCache,
		Uploader: uploader,
	})
	supplierService := services.NewSupplierService(repos.Suppliers, repos.Users, repos.Listings, publisher, supplierCache)
	userService := services.NewUserService(repos.Users)
	authService := services.NewAuthService(repos.Users, tokens)
	adminService := services.NewAdminService(repos.Users, repos.Suppliers, repos.Listings, repos.Messages)

	// --- 3. HTTP ---

	router := routes.NewRouter(routes.Options{
		Log:            log,
		ClientURL:      cfg.ClientURL,
		Production:     cfg.IsProduction(),
		RequestTimeout: cfg.RequestTimeout,
		Ready:          mongoDB.Ready,
		Tokens:         tokens,
		Metrics:        metrics,
		APILimiter:     middleware.NewRateLimiter(rate.Limit(50), 100, 10*time.Minute),
		WebSocket:      ws.NewHandler(hub, tokens, chatService, cfg.ClientURL, log).Serve,
		Controllers: routes.Controllers{
			Auth:          controllers.NewAuthController(authService, cfg.IsProduction()),
			Users:         controllers.NewUserController(userService),
			Suppliers:     controllers.NewSupplierController(supplierService),
			Listings:      controllers.NewListingController(listingService),
			Chat:          controllers.NewChatController(chatService),
			Notifications: controllers.NewNotificationController(notificationService),
			Admin:         controllers.NewAdminController(adminService, supplierService, listingService, userService),
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Marketplace API starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- 4. Graceful shutdown ---

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down Marketplace API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	if err := hub.Close(); err != nil {
		log.Error("Failed to close realtime hub", zap.Error(err))
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("Failed to close Kafka consumer", zap.Error(err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	if err := mongoDB.Close(); err != nil {
		log.Error("Failed to close MongoDB", zap.Error(err))
	}

	log.Info("Marketplace API stopped gracefully")
}
