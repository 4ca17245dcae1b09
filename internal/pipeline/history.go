package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/billtrack/internal/history"
	"github.com/ppiankov/billtrack/internal/lis"
	"github.com/ppiankov/billtrack/internal/model"
	"github.com/ppiankov/billtrack/internal/worker"
)

// HistoryOptions configures a history run
type HistoryOptions struct {
	Full          bool // fetch every listed bill, not only changed ones
	RegisterBills bool // record unknown bills instead of skipping them (in-memory store only)
}

// HistoryResult summarizes a history run
type HistoryResult struct {
	Listed       int
	Changed      int
	UnknownBills int
	Fetch        worker.LoopResult
	Stored       int
	Attribution  history.AttributionResult
}

type historyTarget struct {
	lisID string
	bill  model.Bill
}

// RunHistory fetches and stores event history for every bill whose listed
// status changed since the previous run, then re-attributes chambers for
// the bills it touched.
func (p *Pipeline) RunHistory(ctx context.Context, opts HistoryOptions) (HistoryResult, error) {
	var res HistoryResult
	code := p.cfg.Session.Code

	stop := p.metrics.TimeUpstream("legislation_list")
	list, err := p.upstream.GetLegislationList(ctx, code)
	stop()
	if err != nil {
		return res, fmt.Errorf("fetch legislation list: %w", err)
	}
	res.Listed = len(list)

	current := make(map[string]string, len(list))
	numbers := make(map[string]string, len(list))
	for _, l := range list {
		id := lis.LegislationIDString(l.LegislationID)
		current[id] = history.CleanStatus(l.LegislationStatus)
		numbers[id] = strings.ToLower(strings.TrimSpace(l.LegislationNumber))
	}

	changed, err := history.NewChangeDetector(p.cache, p.logger).DetectChanged(current, history.SnapshotKey(code))
	if err != nil {
		p.logger.Warn("change snapshot not saved", "error", err)
	}
	if opts.Full {
		changed = make([]string, 0, len(current))
		for id := range current {
			changed = append(changed, id)
		}
		sort.Strings(changed)
	}
	res.Changed = len(changed)
	p.metrics.Items("history", "changed", len(changed))

	targets, unknown, err := p.resolveBills(ctx, changed, numbers, opts.RegisterBills)
	if err != nil {
		return res, err
	}
	res.UnknownBills = unknown
	p.metrics.Items("history", "unknown_bill", unknown)

	events := history.NewEventStore(p.store, p.logger)
	var touched []model.Bill

	loop := worker.Loop{
		Name:                   "history",
		MaxConsecutiveFailures: p.cfg.Ingest.MaxConsecutiveFailures,
		Logger:                 p.logger,
	}
	res.Fetch, err = worker.Each(ctx, loop, targets, func(ctx context.Context, t historyTarget) error {
		stop := p.metrics.TimeUpstream("event_history")
		raw, err := p.upstream.GetEventHistory(ctx, t.lisID)
		stop()
		if err != nil {
			return fmt.Errorf("fetch history of %s: %w", t.bill.Number, err)
		}

		n, err := events.Store(ctx, t.bill.ID, t.bill.SessionID, history.Normalize(raw))
		res.Stored += n
		if err != nil {
			return err
		}
		touched = append(touched, t.bill)
		return nil
	})
	p.metrics.Items("history", "fetched", res.Fetch.Succeeded)
	p.metrics.Items("history", "failed", res.Fetch.Failed)
	p.metrics.Rows("bills_status", int64(res.Stored))

	attributor := history.NewAttributor(p.store, p.logger)
	for _, bill := range touched {
		if !bill.CrossesChambers() {
			res.Attribution.Skipped++
			continue
		}
		res.Attribution.Bills++
		n, aerr := attributor.AttributeBill(ctx, bill)
		res.Attribution.Corrected += n
		if aerr != nil {
			res.Attribution.Failed++
			p.logger.Warn("chamber attribution failed", "bill", bill.Number, "error", aerr)
		}
	}
	p.metrics.Rows("bills_status_chamber", int64(res.Attribution.Corrected))

	return res, err
}

// resolveBills maps changed upstream ids to stored bills, matching on the
// stored lis id first and the bill number second.
func (p *Pipeline) resolveBills(ctx context.Context, ids []string, numbers map[string]string, register bool) ([]historyTarget, int, error) {
	bills, err := p.store.ListBills(ctx, p.cfg.Session.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}

	byLISID := make(map[string]model.Bill, len(bills))
	byNumber := make(map[string]model.Bill, len(bills))
	for _, b := range bills {
		if b.LISID != "" {
			byLISID[b.LISID] = b
		}
		byNumber[strings.ToLower(b.Number)] = b
	}

	registrar, canRegister := p.store.(billRegistrar)

	targets := make([]historyTarget, 0, len(ids))
	unknown := 0
	for _, id := range ids {
		bill, ok := byLISID[id]
		if !ok {
			bill, ok = byNumber[numbers[id]]
		}
		if !ok && register && canRegister && numbers[id] != "" {
			bill = model.Bill{Number: numbers[id], SessionID: p.cfg.Session.ID, LISID: id}
			bill.ID = registrar.AddBill(bill)
			ok = true
		}
		if !ok {
			unknown++
			p.logger.Warn("no stored bill for upstream legislation", "lis_id", id, "number", numbers[id])
			continue
		}
		targets = append(targets, historyTarget{lisID: id, bill: bill})
	}
	return targets, unknown, nil
}
