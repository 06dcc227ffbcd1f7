package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/mightyoctopus/worthbrain/internal/agent"
	"github.com/mightyoctopus/worthbrain/internal/config"
	"github.com/mightyoctopus/worthbrain/internal/domain/service/planner"
	"github.com/mightyoctopus/worthbrain/internal/domain/service/pricing"
	"github.com/mightyoctopus/worthbrain/internal/infrastructure/estimator"
	"github.com/mightyoctopus/worthbrain/internal/infrastructure/notifier"
	"github.com/mightyoctopus/worthbrain/internal/infrastructure/openai"
	"github.com/mightyoctopus/worthbrain/internal/infrastructure/persistence"
	"github.com/mightyoctopus/worthbrain/internal/infrastructure/source"
	"github.com/mightyoctopus/worthbrain/internal/server"
	"github.com/mightyoctopus/worthbrain/internal/worker"
	"github.com/mightyoctopus/worthbrain/pkg/application/connectors"
	"github.com/mightyoctopus/worthbrain/pkg/application/modules"
	"github.com/mightyoctopus/worthbrain/pkg/logx"
	"github.com/mightyoctopus/worthbrain/pkg/middlewarex"
)

const (
	appName = "worthbrain"

	shutdownTimeout = 10 * time.Second
	logFieldMaxLen  = 4096
)

type App struct {
	Version string
}

func (a App) Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	redisConn := &connectors.Redis{
		Address:            cfg.Redis.Address,
		Username:           cfg.Redis.Username,
		Password:           cfg.Redis.Password,
		DatabaseNumber:     cfg.Redis.DatabaseNumber,
		PoolSize:           cfg.Redis.PoolSize,
		MinIdleConnections: cfg.Redis.MinIdleConnections,
		MaxIdleConnections: cfg.Redis.MaxIdleConnections,
	}
	redisClient := redisConn.Client(ctx)
	defer redisConn.Close(ctx)

	memory, closeMemory, err := a.buildMemory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build memory store: %w", err)
	}
	defer closeMemory(ctx)

	llm := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model).
		WithBaseURL(cfg.OpenAI.BaseURL).
		WithTimeout(cfg.OpenAI.Timeout)

	dealSource := source.NewDealWire(source.NewFeedClient(), llm)
	if len(cfg.Hunter.Feeds) > 0 {
		dealSource = dealSource.WithFeeds(cfg.Hunter.Feeds)
	}

	ensemble := pricing.NewEnsemble(
		estimator.NewHTTPPricer("retrieval", cfg.Estimators.RetrievalURL).WithTimeout(cfg.Estimators.Timeout),
		estimator.NewHTTPPricer("specialist", cfg.Estimators.SpecialistURL).WithTimeout(cfg.Estimators.Timeout),
		estimator.NewHTTPPricer("learned", cfg.Estimators.LearnedURL).WithTimeout(cfg.Estimators.Timeout),
	)

	alerts, err := a.buildNotifier(cfg)
	if err != nil {
		return fmt.Errorf("build notifier: %w", err)
	}

	plan, err := a.buildPlanner(cfg, llm, dealSource, ensemble, alerts)
	if err != nil {
		return fmt.Errorf("build planner: %w", err)
	}

	hunter := worker.NewHunter(plan, memory)
	if cfg.Hunter.Interval > 0 {
		hunter = hunter.WithInterval(cfg.Hunter.Interval)
	}

	runStore := worker.NewRunStore(redisClient)
	huntHandler := worker.NewHuntHandler(hunter, runStore)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DatabaseNumber,
	})
	defer asynqClient.Close()

	runQueue := worker.NewRunQueue(asynqClient)

	router := chi.NewRouter()
	router.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.Recovery,
		middlewarex.RequestLogging(logx.NewSensitiveDataMasker(), logFieldMaxLen),
		middlewarex.ResponseLogging(logx.NewSensitiveDataMasker(), logFieldMaxLen),
	)

	server.NewServer(
		server.NewHuntServer(memory, runStore, runQueue, ensemble),
	).RegisterRoutes(router)

	g, gCtx := errgroup.WithContext(ctx)

	modules.ProbeServer{
		Name:          appName,
		Version:       a.Version,
		ListenAddress: cfg.Server.ProbeAddress,
	}.Run(gCtx, g)

	modules.MetricServer{
		ListenAddress: cfg.Server.MetricsAddress,
	}.Run(gCtx, g)

	modules.HTTPServer{
		ShutdownTimeout: shutdownTimeout,
	}.Run(gCtx, g, &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	})

	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
		// One worker: runs share the hunter and its log stream, and
		// memory is single-writer.
		Concurrency: 1,
	}.Run(gCtx, g,
		modules.AsynqQueues{worker.QueueHunts: 1},
		modules.AsynqHandler{
			Pattern: worker.TaskTypeHuntRun,
			Handle:  huntHandler.Handle,
		},
	)

	if cfg.Hunter.Interval > 0 {
		if err := hunter.Start(gCtx); err != nil {
			return fmt.Errorf("hunter.Start: %w", err)
		}

		g.Go(func() error {
			<-gCtx.Done()
			hunter.Stop()
			return nil
		})
	}

	logger(ctx).Info("🚀 worthbrain started",
		"planner", cfg.Hunter.Planner,
		"notifier", cfg.Notifier.Kind,
		"periodic", cfg.Hunter.Interval > 0,
	)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("g.Wait: %w", err)
	}

	return nil
}

// buildMemory selects the durable opportunity log: Postgres when a DSN
// is configured, the JSON memory file otherwise.
func (a App) buildMemory(ctx context.Context, cfg config.Config) (worker.Memory, func(context.Context), error) {
	if cfg.Postgres.DSN == "" {
		logger(ctx).Info("memory store: file", "path", cfg.Hunter.MemoryFile)
		return persistence.NewFileStore(cfg.Hunter.MemoryFile), func(context.Context) {}, nil
	}

	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}

	db := pg.Client(ctx)
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}

	logger(ctx).Info("memory store: postgres")

	return persistence.NewOpportunityRepository(db), pg.Close, nil
}

func (a App) buildNotifier(cfg config.Config) (planner.Notifier, error) {
	switch cfg.Notifier.Kind {
	case "telegram":
		return notifier.NewTelegram(cfg.Notifier.TelegramBotToken, cfg.Notifier.TelegramChatID)
	case "pushover":
		return notifier.NewPushover(cfg.Notifier.PushoverUserKey, cfg.Notifier.PushoverAppToken), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier.Kind)
	}
}

func (a App) buildPlanner(
	cfg config.Config,
	llm *openai.Client,
	dealSource *source.DealWire,
	ensemble *pricing.Ensemble,
	alerts planner.Notifier,
) (worker.Planner, error) {
	switch cfg.Hunter.Planner {
	case "autonomous":
		return agent.NewAutonomous(llm, dealSource, ensemble, alerts).
			WithMaxToolRounds(cfg.Hunter.MaxToolRounds), nil
	case "deterministic":
		return planner.NewDeterministic(dealSource, ensemble, alerts).
			WithMaxCandidates(cfg.Hunter.MaxCandidates).
			WithDiscountThreshold(cfg.Hunter.DiscountThreshold), nil
	default:
		return nil, fmt.Errorf("unknown planner %q", cfg.Hunter.Planner)
	}
}
