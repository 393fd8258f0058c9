package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"steamnews/internal/allowlist"
	"steamnews/internal/config"
	"steamnews/internal/feed"
	"steamnews/internal/publisher"
	"steamnews/internal/scheduler"
	"steamnews/internal/service"
	"steamnews/internal/source/steam"
	"steamnews/internal/storage/postgres"
	"steamnews/internal/storage/redis"
	"steamnews/migrations"
)

type app struct {
	cfg    *config.Config
	db     *sqlx.DB
	logger *slog.Logger
	out    io.Writer

	sources   *postgres.SourceStore
	items     *postgres.ItemStore
	txManager *postgres.TransactionManager

	closers []io.Closer
}

func newApp(cfg *config.Config, db *sqlx.DB, logger *slog.Logger) *app {
	return &app{
		cfg:       cfg,
		db:        db,
		logger:    logger,
		out:       os.Stdout,
		sources:   postgres.NewSourceStore(db),
		items:     postgres.NewItemStore(db),
		txManager: postgres.NewTransactionManager(db),
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "init":
		return a.initSchema(ctx)
	case "add-profile":
		if len(args) != 1 {
			return usageError("add-profile needs exactly one steam id or vanity name")
		}
		return a.addProfile(ctx, args[0])
	case "fetch":
		return a.fetch(ctx)
	case "publish":
		fs := flag.NewFlagSet("publish", flag.ContinueOnError)
		output := fs.String("o", "", "output path (defaults to feed.output_path)")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		return a.publish(ctx, *output)
	case "sources":
		return a.sourcesCommand(ctx, args)
	case "daemon":
		return a.daemon(ctx)
	}
	return usageError(fmt.Sprintf("unknown command %q", command))
}

func (a *app) initSchema(ctx context.Context) error {
	applied, err := postgres.Migrate(ctx, a.db, migrations.FS)
	if err != nil {
		return err
	}
	a.logger.Info("schema ready", "migrations", applied)
	return nil
}

func (a *app) addProfile(ctx context.Context, idOrVanity string) error {
	scanner := steam.NewProfileScanner(
		a.cfg.Steam.ProfileBaseURL,
		a.cfg.Steam.UserAgent,
		a.cfg.Steam.Timeout,
		a.logger,
	)

	games, err := scanner.Discover(ctx, idOrVanity)
	if err != nil {
		return err
	}

	added, err := a.sources.Add(ctx, games)
	if err != nil {
		return err
	}
	a.logger.Info("sources added", "profile", idOrVanity, "found", len(games), "added", added)
	return nil
}

func (a *app) expiryStore(ctx context.Context) (service.ExpiryStore, error) {
	if a.cfg.Cache.Backend != config.CacheBackendRedis {
		return postgres.NewExpiryStore(a.db), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     a.cfg.Cache.Redis.Addr,
		Password: a.cfg.Cache.Redis.Password,
		DB:       a.cfg.Cache.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, client)
	a.logger.Info("using redis cache backend", "addr", a.cfg.Cache.Redis.Addr)

	return redis.NewExpiryStore(client, a.cfg.Cache.Redis.KeyPrefix), nil
}

func (a *app) newFetchService(ctx context.Context) (*service.FetchService, error) {
	expiry, err := a.expiryStore(ctx)
	if err != nil {
		return nil, err
	}

	var pub service.Publisher
	if a.cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        a.cfg.RabbitMQ.URL,
			Exchange:   a.cfg.RabbitMQ.Exchange,
			RoutingKey: a.cfg.RabbitMQ.RoutingKey,
			QueueName:  a.cfg.RabbitMQ.QueueName,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rabbitMQ)
		pub = rabbitMQ
	}

	news := steam.NewClient(steam.Config{
		NewsURL:        a.cfg.Steam.NewsURL,
		Count:          a.cfg.Steam.Count,
		MaxLength:      a.cfg.Steam.MaxLength,
		Timeout:        a.cfg.Steam.Timeout,
		UserAgent:      a.cfg.Steam.UserAgent,
		MaxAttempts:    a.cfg.Steam.Retry.MaxAttempts,
		InitialBackoff: a.cfg.Steam.Retry.InitialBackoff,
		MaxBackoff:     a.cfg.Steam.Retry.MaxBackoff,
	}, a.logger)

	return service.NewFetchService(
		a.sources,
		a.items,
		service.NewCacheManager(expiry),
		news,
		a.txManager,
		pub,
		a.logger,
		a.cfg.Fetch,
	), nil
}

func (a *app) fetch(ctx context.Context) error {
	svc, err := a.newFetchService(ctx)
	if err != nil {
		return err
	}
	_, err = svc.Run(ctx)
	return err
}

func (a *app) publish(ctx context.Context, output string) error {
	synth := feed.NewSynthesizer(a.items, a.cfg.Feed, a.logger)
	_, err := synth.Publish(ctx, output)
	if errors.Is(err, feed.ErrNothingToPublish) {
		a.logger.Info("nothing to publish")
		return nil
	}
	return err
}

func (a *app) daemon(ctx context.Context) error {
	svc, err := a.newFetchService(ctx)
	if err != nil {
		return err
	}
	synth := feed.NewSynthesizer(a.items, a.cfg.Feed, a.logger)

	job := scheduler.JobFunc(func(ctx context.Context) error {
		if _, err := svc.Run(ctx); err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		_, err := synth.Publish(ctx, "")
		if errors.Is(err, feed.ErrNothingToPublish) {
			a.logger.Info("nothing to publish")
			return nil
		}
		return err
	})

	sched, err := scheduler.New(a.cfg.Schedule.Cron, job, a.cfg.Schedule.RunTimeout, a.logger)
	if err != nil {
		return err
	}
	return sched.Start(ctx)
}

func (a *app) sourcesCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("sources needs a subcommand: list, enable, disable or select")
	}

	fs := flag.NewFlagSet("sources "+args[0], flag.ContinueOnError)
	like := fs.String("like", "", "case-insensitive name filter")
	if err := fs.Parse(args[1:]); err != nil {
		return usageError(err.Error())
	}

	switch args[0] {
	case "list":
		return a.listSources(ctx, *like)
	case "enable", "disable":
		ids, err := parseIDs(fs.Args())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return usageError("sources " + args[0] + " needs at least one id")
		}
		n, err := a.sources.SetShouldFetch(ctx, ids, args[0] == "enable")
		if err != nil {
			return err
		}
		a.logger.Info("sources updated", "action", args[0], "count", n)
		return nil
	case "select":
		if *like == "" {
			return usageError("sources select needs -like")
		}
		ids, err := parseIDs(fs.Args())
		if err != nil {
			return err
		}
		return a.selectSources(ctx, *like, ids)
	}
	return usageError(fmt.Sprintf("unknown sources subcommand %q", args[0]))
}

func (a *app) listSources(ctx context.Context, like string) error {
	sources, err := a.sources.Matching(ctx, like)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFETCH\tNAME")
	for _, src := range sources {
		state := "off"
		if src.ShouldFetch {
			state = "on"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", src.ID, state, src.Name)
	}
	return w.Flush()
}

func (a *app) selectSources(ctx context.Context, like string, selected []int64) error {
	candidates, err := a.sources.Matching(ctx, like)
	if err != nil {
		return err
	}

	enable, disable := allowlist.Diff(candidates, selected)

	return a.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if len(disable) > 0 {
			if _, err := a.sources.SetShouldFetch(ctx, disable, false); err != nil {
				return err
			}
			a.logger.Info("disabled sources", "count", len(disable))
		}
		if len(enable) > 0 {
			if _, err := a.sources.SetShouldFetch(ctx, enable, true); err != nil {
				return err
			}
			a.logger.Info("enabled sources", "count", len(enable))
		}
		return nil
	})
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, usageError(fmt.Sprintf("invalid source id %q", arg))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
