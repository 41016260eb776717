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

	"github.com/communehq/commune/internal/auth"
	"github.com/communehq/commune/internal/cache"
	"github.com/communehq/commune/internal/config"
	"github.com/communehq/commune/internal/database"
	"github.com/communehq/commune/internal/email"
	"github.com/communehq/commune/internal/handlers"
	"github.com/communehq/commune/internal/i18n"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/middleware"
	"github.com/communehq/commune/internal/queue"
	"github.com/communehq/commune/internal/realtime"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/retention"
	"github.com/communehq/commune/internal/search"
	"github.com/communehq/commune/internal/storage"
	"github.com/communehq/commune/internal/telemetry"
	"github.com/communehq/commune/internal/validation"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	root := &cobra.Command{
		Use:          "commune-server",
		Short:        "Commune API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(serveCmd(), migrateCmd(), reindexCmd(), promoteAdminCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

// bootstrap loads configuration, starts the logger and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Initialize(logger.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  !cfg.IsDevelopment(),
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Open(database.Options{
		Driver:  cfg.DatabaseDriver,
		URL:     cfg.DatabaseURL,
		Verbose: cfg.IsDevelopment() && cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, db, nil
}

func serve(ctx context.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Close()
	defer database.Close(db)

	logger.Log.Info("Commune server starting",
		zap.String("environment", cfg.Environment),
		zap.String("database", cfg.DatabaseDriver),
	)

	if err := database.Migrate(db); err != nil {
		return err
	}

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  cfg.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.SamplingRate,
	})
	if err != nil {
		return err
	}
	if cfg.TracingEnabled() {
		if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.WarnWithFields("Failed to install database tracing", err)
		}
	}

	store := repository.NewStore(db)
	tr, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		return err
	}

	authService := auth.NewService(store.Users(), auth.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Issuer:    "Commune",
		Google:    cfg.Google,
	})
	h := handlers.NewHandlers(store, authService)
	h.SetCommentEditWindow(cfg.CommentEditWindow)

	// Without Redis the hub and the rate limiters are per process.
	var rc *cache.RedisClient
	if cfg.RedisAddr != "" {
		rc, err = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, continuing without it", err)
			rc = nil
		} else {
			defer rc.Close()
			h.SetFeedCache(cache.NewFeedCache(rc, cfg.FeedCacheTTL))
		}
	}

	hub := realtime.NewHub()
	go hub.Run()
	var feed realtime.Feed = hub
	if rc != nil {
		bridge := realtime.NewRedisBridge(hub, rc.Client(), "")
		go func() {
			if err := bridge.Run(ctx, nil); err != nil {
				logger.ErrorWithFields("Realtime redis bridge stopped", err)
			}
		}()
		feed = bridge
	}
	h.SetRealtimeFeed(feed)

	var (
		media  storage.MediaStore
		bucket *storage.S3Store
	)
	if cfg.S3Bucket != "" {
		bucket, err = storage.NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.CDNBaseURL)
		if err != nil {
			logger.WarnWithFields("S3 unavailable, uploads disabled", err)
			bucket = nil
		} else {
			media = bucket
			h.SetMediaStore(media)
		}
	}

	sweeper := retention.NewService(store, media, retention.PolicyFor(cfg.NotificationRetention), cfg.RetentionInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	var mail *queue.MailQueue
	if cfg.SESFromEmail != "" {
		sender, err := email.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, tr)
		if err != nil {
			logger.WarnWithFields("SES unavailable, complaint emails disabled", err)
		} else {
			mail = queue.NewMailQueue(sender, queue.DefaultOptions())
			mail.Start()
			h.SetEmailSender(mail)
		}
	}

	var searchClient *search.Client
	if cfg.ElasticsearchURL != "" {
		var reconciler *search.Reconciler
		searchClient, reconciler = setupSearch(ctx, cfg, store, rc, h)
		if reconciler != nil {
			defer reconciler.Stop()
		}
	}

	validator := validation.NewServiceValidator()
	validator.Register("redis", func(ctx context.Context) error {
		if rc == nil {
			return validation.ErrNotConfigured
		}
		return rc.Ping(ctx)
	})
	validator.Register("s3", func(ctx context.Context) error {
		if bucket == nil {
			return validation.ErrNotConfigured
		}
		return bucket.CheckBucketAccess(ctx)
	})
	validator.Register("ses", func(ctx context.Context) error {
		if mail == nil {
			return validation.ErrNotConfigured
		}
		return nil
	})
	validator.Register("elasticsearch", func(ctx context.Context) error {
		if searchClient == nil {
			return validation.ErrNotConfigured
		}
		return searchClient.Ping(ctx)
	})
	if err := validator.ValidateServices(ctx, cfg.RequiredServices); err != nil {
		if mail != nil {
			_ = mail.Stop(context.Background())
		}
		return err
	}

	router := newRouter(cfg, tr, rc, h, realtime.NewHandler(feed, cfg.CORSOrigins))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Listening", zap.String("addr", srv.Addr))
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
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.WarnWithFields("Realtime hub shutdown", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if mail != nil {
		if err := mail.Stop(shutdownCtx); err != nil {
			logger.WarnWithFields("Mail queue did not drain", err)
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.WarnWithFields("Tracer shutdown", err)
	}

	logger.Log.Info("Server exited")
	return nil
}

// setupSearch connects to Elasticsearch, makes sure the indices are current
// and starts the periodic reindex. Failures leave search on the SQL fallback
// and return a nil client.
func setupSearch(ctx context.Context, cfg *config.Config, store repository.Store, rc *cache.RedisClient, h *handlers.Handlers) (*search.Client, *search.Reconciler) {
	client, err := search.NewClient(cfg.ElasticsearchURL)
	if err != nil {
		logger.WarnWithFields("Elasticsearch unavailable, using database search", err)
		return nil, nil
	}
	if err := client.Ping(ctx); err != nil {
		logger.WarnWithFields("Elasticsearch unreachable, using database search", err)
		return nil, nil
	}

	stale, err := client.CheckIndexVersion(ctx)
	switch {
	case err != nil:
		logger.WarnWithFields("Failed to check search index version", err)
	case stale:
		logger.Log.Info("Search mappings changed, recreating indices")
		if err := client.RecreateIndices(ctx); err != nil {
			logger.WarnWithFields("Failed to recreate search indices", err)
		}
	default:
		if err := client.InitializeIndices(ctx); err != nil {
			logger.WarnWithFields("Failed to initialize search indices", err)
		}
	}

	var searcher search.Searcher = client
	if rc != nil {
		searcher = search.NewCachedSearcher(client, cache.NewPageCache(rc, "search", cfg.FeedCacheTTL))
	}
	h.SetSearch(searcher, client)

	reconciler := search.NewReconciler(client, store, time.Hour)
	reconciler.Start(ctx)
	return client, reconciler
}

func newRouter(cfg *config.Config, tr i18n.Translator, rc *cache.RedisClient, h *handlers.Handlers, rt *realtime.Handler) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog("/health", "/metrics"))
	r.Use(middleware.Metrics())
	if cfg.TracingEnabled() {
		r.Use(middleware.Tracing(cfg.ServiceName))
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept-Language", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After", "X-RateLimit-Remaining"}
	r.Use(cors.New(corsConfig))

	// The realtime socket must not be wrapped by the gzip writer.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/realtime"})))
	r.Use(middleware.Locale(tr))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	general := middleware.DefaultRateLimitConfig()
	general.Limit = cfg.RateLimit
	general.Window = cfg.RateLimitWindow

	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimit(rc, "api", general))
	h.RegisterRoutes(api, handlers.RouteOptions{
		Realtime:      rt.Serve,
		AuthLimiter:   middleware.RedisRateLimit(rc, "auth", middleware.AuthRateLimitConfig()),
		UploadLimiter: middleware.RedisRateLimit(rc, "upload", middleware.UploadRateLimitConfig()),
	})
	return r
}
