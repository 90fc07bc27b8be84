package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/itchan-dev/itboard/backend/internal/collaborator/akismet"
	"github.com/itchan-dev/itboard/backend/internal/collaborator/dnsbl"
	"github.com/itchan-dev/itboard/backend/internal/handler"
	"github.com/itchan-dev/itboard/backend/internal/moderation"
	"github.com/itchan-dev/itboard/backend/internal/queue"
	"github.com/itchan-dev/itboard/backend/internal/ratelimit"
	"github.com/itchan-dev/itboard/backend/internal/service"
	"github.com/itchan-dev/itboard/backend/internal/storage/pg"
	"github.com/itchan-dev/itboard/backend/internal/worker"
	"github.com/itchan-dev/itboard/shared/banlist"
	"github.com/itchan-dev/itboard/shared/config"
	"github.com/itchan-dev/itboard/shared/markdown"
	"github.com/itchan-dev/itboard/shared/middleware/throttle"
	"github.com/redis/go-redis/v9"
)

// Dependencies holds everything the API server needs.
type Dependencies struct {
	Config   *config.Config
	Storage  *pg.Storage
	Redis    *redis.Client
	Queue    *queue.Queue
	Bans     *banlist.Cache
	Throttle *throttle.Throttle
	Handler  *handler.Handler
}

// WorkerDependencies holds everything the submission worker needs.
type WorkerDependencies struct {
	Config  *config.Config
	Storage *pg.Storage
	Redis   *redis.Client
	Pool    *worker.Pool
}

// SetupDependencies connects to PostgreSQL and Redis and wires the request path.
// The ban list is loaded once here; callers start its background refresh.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(ctx, cfg, pg.DefaultConnectionConfig())
	if err != nil {
		return nil, err
	}
	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		storage.Cleanup()
		return nil, err
	}

	q := queue.New(rdb, cfg.Public.Queue.Name, queue.WithResultTTL(cfg.Public.ResultTTL()))
	limiter := ratelimit.New(ratelimit.NewRedisStore(rdb))

	bans := banlist.NewCache(storage)
	if err := bans.Update(ctx); err != nil {
		storage.Cleanup()
		rdb.Close()
		return nil, fmt.Errorf("failed to load ban list: %w", err)
	}

	submission := service.New(storage, q, limiter, bans, cfg.Private.IdentSecret)
	ready := readiness{
		db:        storage,
		queue:     q,
		bans:      bans,
		maxBanAge: staleBanFactor * cfg.Public.BanRefresh(),
		now:       time.Now,
	}
	h := handler.New(submission, ready, markdown.New())

	return &Dependencies{
		Config:   cfg,
		Storage:  storage,
		Redis:    rdb,
		Queue:    q,
		Bans:     bans,
		Throttle: throttle.New(cfg.Public.RequestsPerSecond, cfg.Public.RequestBurst, time.Hour),
		Handler:  h,
	}, nil
}

// SetupWorker wires the queue consumer and the moderation collaborators.
func SetupWorker(ctx context.Context, cfg *config.Config) (*WorkerDependencies, error) {
	storage, err := pg.New(ctx, cfg, pg.WorkerConnectionConfig(cfg.Public.Worker.Concurrency))
	if err != nil {
		return nil, err
	}
	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		storage.Cleanup()
		return nil, err
	}

	opts := []queue.Option{queue.WithResultTTL(cfg.Public.ResultTTL())}
	if cfg.Public.Worker.ID != "" {
		opts = append(opts, queue.WithWorkerID(cfg.Public.Worker.ID))
	}
	q := queue.New(rdb, cfg.Public.Queue.Name, opts...)

	mod := cfg.Public.Moderation
	pipeline := moderation.Default(
		akismet.New(cfg.Private.AkismetKey, mod.AkismetBlog, mod.AkismetTimeout*time.Second),
		dnsbl.New(mod.DnsblProviders, mod.DnsblTimeout*time.Second),
	)

	var workerOpts []worker.Option
	if cfg.Public.DefaultName != "" {
		workerOpts = append(workerOpts, worker.WithDefaultName(cfg.Public.DefaultName))
	}
	w := worker.New(storage, pipeline, cfg.Private.IdentSecret, workerOpts...)

	return &WorkerDependencies{
		Config:  cfg,
		Storage: storage,
		Redis:   rdb,
		Pool:    worker.NewPool(q, w, cfg.Public.Worker.Concurrency, cfg.Public.PollTimeout()),
	}, nil
}

func (d *Dependencies) Close() {
	d.Redis.Close()
	d.Storage.Cleanup()
}

func (d *WorkerDependencies) Close() {
	d.Redis.Close()
	d.Storage.Cleanup()
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Private.Redis.Addr,
		Password: cfg.Private.Redis.Password,
		DB:       cfg.Private.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

type refresher interface {
	LastUpdate() time.Time
}

// staleBanFactor is how many missed refreshes make the ban list stale.
const staleBanFactor = 3

// readiness reports ready only when the database and the queue both answer
// and the ban list has been refreshed recently.
type readiness struct {
	db        pinger
	queue     pinger
	bans      refresher
	maxBanAge time.Duration
	now       func() time.Time
}

func (r readiness) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := r.queue.Ping(ctx); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if r.bans != nil && r.maxBanAge > 0 {
		if age := r.now().Sub(r.bans.LastUpdate()); age > r.maxBanAge {
			return fmt.Errorf("ban list: last refreshed %s ago", age.Round(time.Second))
		}
	}
	return nil
}
