package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickerpulse/internal/account"
	"tickerpulse/internal/aggregate"
	"tickerpulse/internal/bot"
	"tickerpulse/internal/cache"
	"tickerpulse/internal/config"
	"tickerpulse/internal/db"
	"tickerpulse/internal/handler"
	"tickerpulse/internal/ingest"
	"tickerpulse/internal/job"
	"tickerpulse/internal/market"
	"tickerpulse/internal/pipeline"
	"tickerpulse/internal/provider"
	"tickerpulse/internal/sentiment"
	"tickerpulse/internal/summary"
	"tickerpulse/pkg/logger"
	"tickerpulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	_ "tickerpulse/docs"
)

const serviceName = "ticker-pulse"

var (
	loadEnvFunc          = godotenv.Load
	loadConfigFunc       = config.Load
	initLoggerFunc       = logger.Init
	initTracerFunc       = tracing.InitTracer
	connectRedisFunc     = cache.Connect
	connectPostgresFunc  = db.Connect
	newAnalyzerFunc      = func() sentiment.Analyzer { return sentiment.NewVaderAnalyzer() }
	newLLMClientFunc     = summary.NewOpenAIClient
	startSnapshotJobFunc = func(j *job.SnapshotJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc = func(token string, searcher bot.Searcher, sources []string) {
		go func() {
			if err := bot.StartTelegramBot(token, searcher, sources); err != nil {
				logger.Warn("telegram bot stopped", zap.Error(err))
			}
		}()
	}
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Ticker Pulse API
// @version         1.0
// @description     Social-media sentiment and market context for stock tickers.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = loadEnvFunc()

	cfg, err := loadConfigFunc()
	if err != nil {
		_ = initLoggerFunc("info", "")
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := initLoggerFunc(cfg.LogLevel, cfg.LogFile); err != nil {
		logger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()
	for _, w := range cfg.Warnings {
		logger.Warn("config", zap.String("warning", w))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, tracing.Settings{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: serviceName,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	var store cache.Store
	redisClient, err := connectRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", zap.Error(err))
	} else {
		store = redisClient
		defer closeRedis(redisClient)
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = connectPostgresFunc(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("postgres unavailable, accounts disabled", zap.Error(err))
			pool = nil
		} else {
			defer db.Close(pool)
		}
	}

	pipe := newPipeline(cfg, tracer, store)

	h := handler.New(tracer, pipe, cfg.DefaultSources)
	if pool != nil && cfg.JWTSecret != "" {
		repo := account.NewRepository(pool, tracer)
		h.SetAccounts(account.NewService(tracer, repo, cfg.JWTSecret, cfg.JWTTTL))
	} else if pool != nil {
		logger.Warn("JWT_SECRET is empty, accounts disabled")
	}

	if store != nil {
		snapshots := job.NewSnapshotJob(tracer, pipe, store, job.SnapshotConfig{
			Symbols:      cfg.Watchlist,
			Sources:      cfg.DefaultSources,
			PollInterval: cfg.WatchlistPoll,
		})
		h.SetSnapshotReader(snapshots)
		startSnapshotJobFunc(snapshots, ctx)
	}

	if cfg.TelegramBotToken != "" {
		startTelegramBotFunc(cfg.TelegramBotToken, pipe, cfg.DefaultSources)
	}

	r := newRouterFunc()
	r.Use(otelgin.Middleware(serviceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exiting")
}

func newPipeline(cfg *config.Config, tracer trace.Tracer, store cache.Store) *pipeline.Pipeline {
	reddit := provider.NewRedditProvider(tracer,
		provider.WithRedditBaseURL(cfg.RedditBaseURL),
		provider.WithRedditUserAgent(cfg.RedditUserAgent),
		provider.WithRedditTimeout(cfg.FetchTimeout),
	)

	var charts market.ChartSource = provider.NewYahooProvider(tracer, cfg.YahooBaseURL)
	if store != nil {
		charts = market.NewCachedSource(charts, store, cfg.MarketCacheTTL)
	}

	backoff := provider.DefaultBackoff()
	backoff.Initial = cfg.FetchBackoffStart
	backoff.MaxAttempts = cfg.FetchMaxAttempts
	pacing := cfg.FetchPacing

	fetcher := ingest.NewFetcher(tracer, reddit, ingest.Config{
		ResultCap: cfg.FetchResultCap,
		PageSize:  cfg.FetchPageSize,
		Backoff:   backoff,
		NewPacer:  func() provider.Pacer { return provider.NewRatePacer(pacing) },
	})

	policy, err := sentiment.ParsePolicy(cfg.SentimentPolicy)
	if err != nil {
		logger.Warn("unknown sentiment policy, using narrow", zap.Error(err))
		policy = sentiment.PolicyNarrow
	}

	deps := pipeline.Deps{
		Validator:  market.NewValidator(tracer, charts),
		Fetcher:    fetcher,
		Filter:     sentiment.NewFilter(sentiment.WhatlangDetector{}, cfg.TargetLanguage, cfg.MinWords),
		Scorer:     sentiment.NewScorer(newAnalyzerFunc(), policy),
		Aggregator: aggregate.New(policy),
		Metrics:    market.NewMetrics(tracer, charts),
		NewPacer:   func() provider.Pacer { return provider.NewSharedRatePacer(pacing) },
	}
	if cfg.OpenAIAPIKey != "" {
		deps.Summarizer = summary.New(tracer, newLLMClientFunc(cfg.OpenAIAPIKey), cfg.OpenAIModel)
	}

	return pipeline.New(tracer, deps)
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		logger.Warn("error closing redis client", zap.Error(err))
	}
}
