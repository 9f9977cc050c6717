package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"offline-quiz-service/internal/app"
	"offline-quiz-service/internal/config"
	"offline-quiz-service/internal/infra/memory"
	pgremote "offline-quiz-service/internal/infra/postgres"
	redisremote "offline-quiz-service/internal/infra/redis"
	"offline-quiz-service/internal/infra/sqlite"
	"offline-quiz-service/internal/logger"
)

// components is the wired object graph for one device.
type components struct {
	logger   *slog.Logger
	cache    app.QuestionCache
	results  app.ResultStore
	syncer   *app.SyncCoordinator
	writer   *app.ResultWriter
	service  *app.QuizService
	identity app.Identity
	accounts *memory.Accounts

	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Config) (*components, error) {
	c := &components{logger: logger.New(cfg.Log.Level, cfg.Log.Format)}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	if cfg.Local.Path == "" {
		c.cache = memory.NewQuestionCache()
		c.results = memory.NewResultStore()
	} else {
		store, err := sqlite.NewStore(cfg.Local.Path)
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		c.closers = append(c.closers, func() { _ = store.Close() })
		c.cache = store
		c.results = store
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, func() { _ = redisClient.Close() })
	}

	var source app.QuestionSource = memory.NewStaticQuestionSource(1, sampleQuestions())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		source = pgremote.NewQuestionSource(pool)
	}
	if redisClient != nil {
		versionTTL := config.TTLDuration(cfg.Sync.VersionTTL, config.TTLDuration(cfg.Redis.TTL, 30*time.Second))
		source = redisremote.NewVersionCache(redisClient, source, versionTTL)
	}

	var mirror app.ResultMirror
	switch kind := cfg.MirrorKind(); kind {
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("results.mirror is postgres but postgres.url is empty")
		}
		db := pgremote.OpenBun(cfg.Postgres.URL)
		c.closers = append(c.closers, func() { _ = db.Close() })
		mirror = pgremote.NewResultMirror(db)
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("results.mirror is redis but redis.addr is empty")
		}
		mirror = redisremote.NewResultMirror(redisClient)
	case "none":
	default:
		return nil, fmt.Errorf("unknown results.mirror %q", kind)
	}

	if cfg.Identity.UserID != "" {
		c.identity = memory.NewStaticIdentity(cfg.Identity.UserID)
	} else {
		c.accounts = memory.NewAccounts()
		c.identity = c.accounts
	}

	c.syncer = app.NewSyncCoordinator(c.cache, source, c.logger)
	c.syncer.SetTimeout(config.TTLDuration(cfg.Sync.Timeout, 0))

	c.writer = app.NewResultWriter(c.results, mirror, c.logger)
	c.writer.SetMirrorTimeout(config.TTLDuration(cfg.Results.Timeout, 0))

	opts := []app.ServiceOption{
		app.WithLogger(c.logger),
		app.WithDefaultCount(cfg.Quiz.DefaultCount),
	}
	if mirror != nil {
		opts = append(opts, app.WithRemoteRanking(mirror))
	}
	c.service = app.NewQuizService(c.cache, c.syncer, c.writer, c.results, c.identity, opts...)

	ok = true
	return c, nil
}
