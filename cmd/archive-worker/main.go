package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/campus-events/internal/adapters/mongo"
	"github.com/robertarktes/campus-events/internal/app"
	"github.com/robertarktes/campus-events/internal/clock"
	"github.com/robertarktes/campus-events/internal/config"
	"github.com/robertarktes/campus-events/internal/eventdate"
	"github.com/robertarktes/campus-events/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "campus-archive-worker")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(cfg.LogLevel)

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	catalog := mongoadapter.NewCatalogRepository(mongoClient.Database(cfg.MongoDB), logger)

	archiver := app.NewArchiver(catalog, repo, eventdate.NewClassifier(clock.NewSystem()), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n, err := archiver.Sweep(ctx); err != nil {
		logger.WithError(err).Error("initial archive sweep failed")
	} else {
		logger.WithField("archived", n).Info("initial archive sweep done")
	}
	go archiver.Run(ctx, cfg.ArchiveInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown archive worker")
}
