package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/ppiankov/billtrack/internal/cache"
	"github.com/ppiankov/billtrack/internal/lis"
	"github.com/ppiankov/billtrack/internal/logging"
	"github.com/ppiankov/billtrack/internal/metrics"
	"github.com/ppiankov/billtrack/internal/model"
	"github.com/ppiankov/billtrack/internal/pipeline"
	"github.com/ppiankov/billtrack/internal/store"
	"github.com/ppiankov/billtrack/internal/worker"
)

const pushTimeout = 10 * time.Second

// runtime is everything one command invocation needs
type runtime struct {
	cfg      *model.Config
	runID    string
	started  time.Time
	dryRun   bool
	logger   *slog.Logger
	metrics  *metrics.Run
	pipeline *pipeline.Pipeline
	db       *gorm.DB
	closers  []func() error
}

// newRuntime loads config and wires the store, cache, upstream client and
// metrics for command. A dry run keeps every write in memory.
func newRuntime(ctx context.Context, command string, dryRun bool) (*runtime, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if cfg.Session.Code == "" {
		return nil, errors.New("session code is required (--session-code or session.code)")
	}
	if cfg.Session.ID == 0 && !dryRun {
		return nil, errors.New("session id is required (--session-id or session.id)")
	}

	rt := &runtime{
		cfg:     cfg,
		runID:   uuid.NewString(),
		started: time.Now(),
		dryRun:  dryRun,
		metrics: metrics.NewRun(command),
	}
	rt.logger = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr).With(
		"run_id", rt.runID,
		"command", command,
		"session", cfg.Session.Code,
	)
	slog.SetDefault(rt.logger)

	var (
		st pipeline.Store
		c  cache.Cache
	)
	if dryRun {
		st = store.NewMemory()
		c = cache.NewMemoryCache(0, 0)
	} else {
		rt.db, err = store.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		st = store.NewPostgres(rt.db, rt.logger)

		if cfg.Cache.RedisURL != "" {
			rc, err := cache.NewRedisCache(cfg.Cache.RedisURL, "billtrack:")
			if err != nil {
				_ = store.Close(rt.db)
				return nil, err
			}
			rt.closers = append(rt.closers, rc.Close)
			c = rc
		} else {
			c = cache.NewDiskCache(cfg.Cache.Dir, 0)
		}
	}

	client := lis.NewClient(lis.Options{
		BaseURL:    cfg.LIS.BaseURL,
		Timeout:    cfg.HTTP.Timeout,
		UserAgent:  cfg.HTTP.UserAgent,
		MaxBytes:   cfg.HTTP.MaxBodyBytes,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		Limiter:    newLimiter(cfg.RateLimiting),
	})

	rt.pipeline = pipeline.New(cfg, st, client, c, rt.metrics, rt.logger)
	return rt, nil
}

// newLimiter builds the upstream limiter with any per-host overrides applied
func newLimiter(rl model.RateLimitConfig) *worker.Limiter {
	limiter := worker.NewLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.Delay)
	for _, h := range rl.Hosts {
		if h.Host == "" || h.RequestsPerSecond <= 0 {
			continue
		}
		limiter.SetHostRate(h.Host, h.RequestsPerSecond, h.BurstSize)
	}
	return limiter
}

// finish records the run outcome, pushes metrics and closes the database.
// It returns runErr unchanged.
func (rt *runtime) finish(runErr error) error {
	rt.metrics.Finish(rt.started, runErr)

	if rt.cfg.Metrics.PushgatewayURL != "" && !rt.dryRun {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := rt.metrics.Push(ctx, rt.cfg.Metrics.PushgatewayURL, rt.cfg.Metrics.Job, rt.cfg.Session.Code); err != nil {
			rt.logger.Warn("metrics push failed", "error", err)
		}
	}

	if rt.db != nil {
		if err := store.Close(rt.db); err != nil {
			rt.logger.Warn("close database", "error", err)
		}
	}
	for _, closeFn := range rt.closers {
		if err := closeFn(); err != nil {
			rt.logger.Warn("close cache", "error", err)
		}
	}

	if runErr != nil {
		rt.logger.Error("run failed", "error", runErr, "elapsed", time.Since(rt.started).Round(time.Millisecond))
		return runErr
	}
	rt.logger.Info("run complete", "elapsed", time.Since(rt.started).Round(time.Millisecond))
	return nil
}

// banner prints a framed header followed by aligned key/value rows
func banner(title string, rows ...[2]string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	for _, row := range rows {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", row[0]+":", row[1])
	}
	if len(rows) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func (rt *runtime) header(title string) {
	mode := "live"
	if rt.dryRun {
		mode = "dry run (in-memory store)"
	}
	banner(title,
		[2]string{"Session", fmt.Sprintf("%s (id %d)", rt.cfg.Session.Code, rt.cfg.Session.ID)},
		[2]string{"Upstream", rt.cfg.LIS.BaseURL},
		[2]string{"Mode", mode},
		[2]string{"Run ID", rt.runID},
	)
}
