package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gostore-shop/apiserver/config"
	"github.com/gostore-shop/apiserver/internal/db"
	"github.com/gostore-shop/apiserver/internal/handlers"
	"github.com/gostore-shop/apiserver/internal/logging"
	"github.com/gostore-shop/apiserver/internal/mq"
	"github.com/gostore-shop/apiserver/internal/services"
	"github.com/gostore-shop/apiserver/internal/storage"
	"github.com/gostore-shop/apiserver/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, its router, and the connections it
// owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	redis      *redis.Client
	logger     *zap.Logger
}

// New constructs a Server with all routes wired. The task queue,
// object storage, and Redis rate limiter are optional: each is enabled
// by its config section and the server runs without them otherwise.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := logging.New()
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	queue, err := newTaskQueue(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	categoryRepo := store.NewCategoryRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)
	reviewRepo := store.NewReviewRepository(dbConn)

	userService := services.NewUserService(userRepo)
	categoryService := services.NewCategoryService(categoryRepo)
	productService := services.NewProductService(productRepo, categoryRepo)
	reviewService := services.NewReviewService(reviewRepo, logger)

	if queue != nil {
		reviewService = reviewService.WithTaskQueue(queue, cfg.Tasks.Channel)
	}

	if st, err := newObjectStorage(ctx, cfg); err != nil {
		logger.Warn("object storage unavailable, image uploads disabled", zap.Error(err))
	} else if st != nil {
		productService = productService.WithStorage(st, cfg.Storage.PublicBaseURL)
	}

	redisClient := newRedisClient(ctx, cfg, logger)

	authHandler := handlers.NewAuthHandler(userService, jwtSecret)
	authMiddleware := authHandler.RequireAuth

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, authHandler, handlers.RateLimit(redisClient))
	})
	router.Route("/categories", func(r chi.Router) {
		handlers.CategoryRouter(r, categoryService, authMiddleware)
	})
	router.Route("/products", func(r chi.Router) {
		handlers.ProductRouter(r, productService, authMiddleware)
	})
	router.Route("/reviews", func(r chi.Router) {
		handlers.ReviewRouter(r, reviewService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		redis:      redisClient,
		logger:     logger,
	}, nil
}

// newTaskQueue builds the background-task queue selected by config, or
// nil when no backend is configured.
func newTaskQueue(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.Tasks.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown tasks backend %q", cfg.Tasks.Backend)
	}
}

// newObjectStorage builds the image store selected by config, or nil
// when no backend is configured.
func newObjectStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	st := storage.NewStorage(backend)
	if err := st.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return st, nil
}

// newRedisClient connects the rate-limiter store. Redis being down is
// not fatal: limiting is skipped.
func newRedisClient(ctx context.Context, cfg config.Config, logger *zap.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	_ = s.logger.Sync()
	return s.httpServer.Close()
}
