package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/givers/learnerfund/internal/cache"
	"github.com/givers/learnerfund/internal/config"
	"github.com/givers/learnerfund/internal/docstore"
	"github.com/givers/learnerfund/internal/handler"
	"github.com/givers/learnerfund/internal/logging"
	"github.com/givers/learnerfund/internal/repository"
	"github.com/givers/learnerfund/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load config", "error", err)
	}
	logging.Setup(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logging.Fatal("failed to open document store", "driver", cfg.Store.Driver, "error", err)
	}
	defer closeStore()

	// Without a breaker, 503 responses still advertise the configured wait.
	retryAfter := cfg.Breaker.Timeout
	if cfg.Breaker.Enabled {
		resilient := docstore.NewResilient(store, docstore.BreakerSettings{
			Name:         "docstore",
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
		})
		retryAfter = resilient.RetryAfter()
		store = resilient
	}

	pageSize := cfg.Store.PageSize
	donorRepo := repository.NewDocDonorRepository(store)
	campaignRepo := repository.NewDocCampaignRepository(store, pageSize)
	donationRepo := repository.NewDocDonationRepository(store, pageSize)
	poolRepo := repository.NewDocPoolRepository(store, pageSize)
	learnerRepo := repository.NewDocLearnerRepository(store, pageSize)
	locationRepo := repository.NewDocLocationRepository(store, pageSize)
	aggregateRepo := repository.NewDocAggregateRepository(store)

	// Interfaces stay nil when caching is off; Cached and the assignment
	// service both accept that.
	var (
		responseCache handler.ResponseCache
		invalidator   service.CacheInvalidator
	)
	if cfg.Cache.Enabled {
		c, err := cache.Open(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			logging.Fatal("failed to open response cache", "dir", cfg.Cache.Dir, "error", err)
		}
		defer c.Close()
		responseCache = c
		invalidator = c
		slog.Info("response cache enabled", "dir", cfg.Cache.Dir, "ttl", cfg.Cache.TTL)
	}

	donorService := service.NewDonorService(donorRepo)
	campaignService := service.NewCampaignService(campaignRepo, donationRepo, cfg.Campaigns.SuggestedAmount)
	viewService := service.NewViewService(donorService, donationRepo, learnerRepo, locationRepo, aggregateRepo)
	assignmentService := service.NewAssignmentService(
		campaignRepo, donationRepo, poolRepo, donorService, invalidator,
		service.AssignmentOptions{
			AtomicTransfer: cfg.Assignment.AtomicTransfer,
			Referral: service.Referral{
				PlayAppID: cfg.Referral.PlayAppID,
				Source:    cfg.Referral.Source,
			},
		},
	)

	if cfg.Reconcile.Enabled {
		reconciler := service.NewReconciler(poolRepo, learnerRepo, 5*time.Minute)
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Reconcile.Schedule, reconciler.Job()); err != nil {
			logging.Fatal("failed to schedule reconciler", "schedule", cfg.Reconcile.Schedule, "error", err)
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		slog.Info("reconciler scheduled", "schedule", cfg.Reconcile.Schedule)
	}

	h := handler.New(store, cfg.Server.FrontendURL)
	campaignHandler := handler.NewCampaignHandler(campaignService, retryAfter)
	donationHandler := handler.NewDonationHandler(assignmentService, retryAfter)
	donorHandler := handler.NewDonorHandler(viewService, retryAfter)
	learnerHandler := handler.NewLearnerHandler(viewService, retryAfter)

	cached := func(fn http.HandlerFunc) http.Handler {
		return handler.Cached(responseCache, fn)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /api/campaigns", cached(campaignHandler.List))
	mux.Handle("GET /api/regions/{region}/donors/count", cached(campaignHandler.DonorCount))
	mux.HandleFunc("POST /api/donations", donationHandler.Submit)

	// Donor-scoped routes share the /api/donors/{email}/ cache prefix.
	mux.Handle("GET /api/donors/{email}/campaigns", cached(donorHandler.Campaigns))
	mux.Handle("GET /api/donors/{email}/learners", cached(donorHandler.Learners))

	mux.Handle("GET /api/learners/geodata", cached(learnerHandler.GeoData))
	mux.Handle("GET /api/learners/count", cached(learnerHandler.Count))

	var api http.Handler = mux
	if cfg.Server.RateLimitPerMinute > 0 {
		rl := handler.NewRateLimiter(cfg.Server.RateLimitPerMinute)
		go rl.Run(ctx)
		api = rl.Middleware(api)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.RequestLogger(handler.SecurityHeaders(h.CORS(api))),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr, "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// openStore returns the configured backend and a function releasing it.
func openStore(ctx context.Context, cfg config.StoreConfig) (docstore.Store, func(), error) {
	switch cfg.Driver {
	case "memory":
		slog.Warn("using in-memory document store; data is lost on exit")
		return docstore.NewMemStore(), func() {}, nil
	default:
		pool, err := docstore.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewPgStore(pool), pool.Close, nil
	}
}
