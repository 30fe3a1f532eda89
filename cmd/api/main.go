package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/campus-events/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/campus-events/internal/adapters/redis"
	"github.com/robertarktes/campus-events/internal/app"
	"github.com/robertarktes/campus-events/internal/checkin"
	"github.com/robertarktes/campus-events/internal/clock"
	"github.com/robertarktes/campus-events/internal/config"
	"github.com/robertarktes/campus-events/internal/eventdate"
	httphandler "github.com/robertarktes/campus-events/internal/http"
	"github.com/robertarktes/campus-events/internal/idempotency"
	"github.com/robertarktes/campus-events/internal/observability"
	"github.com/robertarktes/campus-events/internal/outbox"
	"github.com/robertarktes/campus-events/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "campus-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger(cfg.LogLevel)

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	crdbRepo := crdb.NewRepository(pool)

	// crdb may still be starting when compose brings the api up
	_, err = backoff.Retry(context.Background(), func() (struct{}, error) {
		return struct{}{}, crdbRepo.Migrate(context.Background())
	}, backoff.WithMaxElapsedTime(time.Minute))
	if err != nil {
		log.Fatalf("failed to migrate crdb: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	sponsorships := mongoadapter.NewSponsorshipRepository(mongoDB, logger)
	chatRepo := mongoadapter.NewChatRepository(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache, rateLimit.WithLogger(logger))

	clk := clock.NewSystem()
	dates := eventdate.NewClassifier(clk)

	verifier := checkin.NewVerifier(crdbRepo, clk,
		checkin.WithTimeout(cfg.StoreTimeout),
		checkin.WithRetries(cfg.StoreRetries),
		checkin.WithNotifier(outbox.NewNotifier(crdbRepo)),
		checkin.WithLogger(logger.WithField("component", "checkin")),
	)
	events := app.NewEventService(catalog, crdbRepo, sponsorships, dates)
	chat := app.NewChatService(catalog, crdbRepo, chatRepo, clk)
	certs := app.NewCertificateService(crdbRepo, crdbRepo)

	checks := map[string]func(ctx context.Context) error{
		"crdb":  crdbRepo.Ping,
		"redis": redisCache.Ping,
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
	}
	handlers := httphandler.NewHandlers(verifier, events, chat, certs, redisCache, cfg.ScanGuardTTL, checks)

	r := httphandler.SetupRouter(handlers, logger, rl, cfg.RateLimitPerMinute, idemp)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.WithField("addr", cfg.HTTPAddr).Info("campus api listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
