package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Giang1311/BookStore-sub000/internal/activity"
	"github.com/Giang1311/BookStore-sub000/internal/config"
	"github.com/Giang1311/BookStore-sub000/internal/httpx"
	"github.com/Giang1311/BookStore-sub000/internal/interactions"
	kafkax "github.com/Giang1311/BookStore-sub000/internal/kafka"
	"github.com/Giang1311/BookStore-sub000/internal/orders"
	"github.com/Giang1311/BookStore-sub000/internal/postgres"
	"github.com/Giang1311/BookStore-sub000/internal/recommend"
	"github.com/Giang1311/BookStore-sub000/internal/redisx"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers for the fulfillment event feed
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pCompleted := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCompleted, 1024)
	pCompleted.Start(ctx)

	// Recommendation rebuild scheduler (process-wide singleton)
	sched := recommend.NewScheduler(cfg.Recommend)
	sched.Start(ctx)

	// View-threshold tracker feeding the scheduler
	tracker := interactions.NewTracker(sched.Trigger)
	tracker.StartJanitor(ctx)

	// Fulfillment service
	feed := &orders.Feed{Created: pCreated, Completed: pCompleted, Service: cfg.ServiceName}
	ledger := &orders.LedgerRepo{DB: db}
	svc := orders.NewService(&orders.Repo{DB: db}, ledger, sched, feed)

	// HTTP
	router := httpx.NewRouter()
	auth := httpx.TokenAuthorizer{Token: cfg.AdminToken}
	oh := &httpx.OrdersHandler{Svc: svc, Ledger: ledger, Redis: rdb, Auth: auth}
	oh.Register(router)
	ih := &httpx.InteractionsHandler{Store: &interactions.Repo{DB: db}, Tracker: tracker}
	ih.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)

	// Catalog activity intake: review/wishlist/signup services publish here
	g.Go(func() error {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ActivityGroup, orders.TopicCatalogActivity, cfg.ActivityWorkers)
		h := &activity.Handler{Redis: rdb, Rebuild: sched}
		log.Printf("[activity] consumer started: group=%s topic=%s workers=%d",
			cfg.ActivityGroup, orders.TopicCatalogActivity, cfg.ActivityWorkers)
		return cons.Start(gctx, h.Handle)
	})

	g.Go(func() error {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// wait signal or component failure
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down...")
	case <-gctx.Done():
		log.Println("component failed, shutting down...")
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	pCreated.Close() // stop intake -> flush & close writer
	pCompleted.Close()
	cancel() // stop consumer, scheduler, janitor
	pCreated.WaitClosed()
	pCompleted.WaitClosed()
	<-sched.Done()

	if err := g.Wait(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
