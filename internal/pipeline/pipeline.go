// Package pipeline wires the upstream client, store and run artifacts into
// the history, attribution, vote and partisanship runs.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/ppiankov/billtrack/internal/cache"
	"github.com/ppiankov/billtrack/internal/history"
	"github.com/ppiankov/billtrack/internal/lis"
	"github.com/ppiankov/billtrack/internal/logging"
	"github.com/ppiankov/billtrack/internal/metrics"
	"github.com/ppiankov/billtrack/internal/model"
	"github.com/ppiankov/billtrack/internal/score"
	"github.com/ppiankov/billtrack/internal/store"
	"github.com/ppiankov/billtrack/internal/votes"
)

// Store is the persistence surface of every run
type Store interface {
	history.StatusWriter
	history.AttributionStore
	votes.Store
	score.Source
	score.Sink
}

var (
	_ Store = (*store.Postgres)(nil)
	_ Store = (*store.Memory)(nil)
)

// Upstream is the subset of the LIS API the runs consume
type Upstream interface {
	GetLegislationList(ctx context.Context, sessionCode string) ([]lis.Legislation, error)
	GetEventHistory(ctx context.Context, legislationID string) ([]lis.Event, error)
	GetVotesRaw(ctx context.Context, sessionCode string) ([]byte, error)
}

var _ Upstream = (*lis.Client)(nil)

// billRegistrar is implemented by stores that can record bills on the fly
type billRegistrar interface {
	AddBill(b model.Bill) int64
}

// Pipeline orchestrates the batch runs for one session
type Pipeline struct {
	cfg      *model.Config
	store    Store
	upstream Upstream
	cache    cache.Cache
	metrics  *metrics.Run
	logger   *slog.Logger
}

// New creates a pipeline. A nil metrics run records into a throwaway registry.
func New(cfg *model.Config, s Store, up Upstream, c cache.Cache, m *metrics.Run, logger *slog.Logger) *Pipeline {
	if m == nil {
		m = metrics.NewRun("adhoc")
	}
	return &Pipeline{
		cfg:      cfg,
		store:    s,
		upstream: up,
		cache:    c,
		metrics:  m,
		logger:   logging.ResolveLogger(logger),
	}
}

// RunAttribution recomputes chambers for every eligible bill in the session
func (p *Pipeline) RunAttribution(ctx context.Context) (history.AttributionResult, error) {
	res, err := history.NewAttributor(p.store, p.logger).AttributeSession(ctx, p.cfg.Session.ID)
	p.metrics.Items("attribute", "scanned", res.Bills)
	p.metrics.Items("attribute", "skipped", res.Skipped)
	p.metrics.Items("attribute", "failed", res.Failed)
	p.metrics.Rows("bills_status", int64(res.Corrected))
	return res, err
}

// RunPartisanship scores every unscored vote in the session
func (p *Pipeline) RunPartisanship(ctx context.Context) (int, error) {
	n, err := score.Calculate(ctx, p.store, p.store, p.cfg.Session.ID)
	p.metrics.Items("partisanship", "scored", n)
	p.metrics.Rows("votes", int64(n))
	return n, err
}
