package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"steamnews/internal/config"
)

const usage = `usage: steamnews [-config path] <command> [arguments]

commands:
  init                        create the database schema
  add-profile <steamid|name>  add the games of a public profile as sources
  fetch                       fetch news for every enabled source
  publish [-o path]           write the RSS feed
  sources list [-like text]   list sources and their fetch state
  sources enable <id>...      enable fetching for sources
  sources disable <id>...     disable fetching for sources
  sources select -like text <id>...
                              enable exactly the given ids among matching sources
  daemon                      fetch and publish on the configured schedule
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	a := newApp(cfg, db, logger)
	defer a.close()

	if err := a.dispatch(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, ue.Error())
			flag.Usage()
			a.close()
			os.Exit(2)
		}
		if errors.Is(err, context.Canceled) {
			logger.Info("stopped")
			return
		}
		logger.Error("command failed", "command", flag.Arg(0), "error", err)
		a.close()
		os.Exit(1)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
