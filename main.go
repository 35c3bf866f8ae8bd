package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/campus-mess/cliparse"
	"github.com/danielhkuo/campus-mess/db"
	"github.com/danielhkuo/campus-mess/prefs"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/router"
	"github.com/danielhkuo/campus-mess/schedule"
	"github.com/danielhkuo/campus-mess/seed"
	"github.com/danielhkuo/campus-mess/session"
)

// dashboardDevice owns the scheduler's durable preferences.
const dashboardDevice = "admin-dashboard"

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slog.Warn("unknown log level, using info", "level", cfg.LogLevel)
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect and verify
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	store := remote.NewSQLStore(dbConn, cfg.DatabaseType)

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		n, err := seed.Apply(ctx, store, f)
		if err != nil {
			return err
		}
		slog.Info("seed applied", "file", cfg.SeedFile, "owners_added", n)
	}

	sessions := session.NewManager(dbConn, store, session.DefaultIdleTimeout)

	durable, err := prefs.NewDurable(dbConn, dashboardDevice)
	if err != nil {
		return err
	}
	sched := schedule.NewScheduler(schedule.NewEvaluator(store, prefs.NewEphemeral()), store, durable, schedule.Options{
		Interval: cfg.SchedulerInterval,
		Location: cfg.Location(),
	})

	g, ctx := errgroup.WithContext(ctx)

	// Watch streams end with ctx instead of holding Shutdown open.
	server := &http.Server{
		Handler:           router.NewRouter(dbConn, cfg, store, sessions, sched),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return sessions.Run(ctx) })
	if cfg.DatabaseType == db.TypePostgres {
		g.Go(func() error { return store.Listen(ctx, cfg.DatabaseURL) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server closed")
	return nil
}
