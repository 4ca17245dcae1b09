package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ppiankov/billtrack/internal/model"
)

// AttributionStore reads a session's bills and status rows and corrects chambers
type AttributionStore interface {
	ListBills(ctx context.Context, sessionID int64) ([]model.Bill, error)
	ListBillStatuses(ctx context.Context, billID, sessionID int64) ([]model.BillStatusEvent, error)
	UpdateBillStatusChamber(ctx context.Context, id int64, chamber model.Chamber) error
}

// SortEvents orders events by (date asc, id asc)
func SortEvents(events []model.BillStatusEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
}

// attributeStep assigns a chamber to one status given the chamber the bill
// is currently in, and returns the chamber for the following statuses.
func attributeStep(current model.Chamber, status string) (this, next model.Chamber) {
	lower := strings.ToLower(status)
	switch {
	case strings.Contains(lower, "passed house"):
		return model.ChamberHouse, model.ChamberHouse.Opposite()
	case strings.Contains(lower, "passed senate"):
		return model.ChamberSenate, model.ChamberSenate.Opposite()
	default:
		return current, current
	}
}

// Attribute folds over events (already sorted with SortEvents) starting in
// origin and returns the chamber of each event, index-aligned.
func Attribute(origin model.Chamber, events []model.BillStatusEvent) []model.Chamber {
	out := make([]model.Chamber, len(events))
	current := origin
	for i, e := range events {
		out[i], current = attributeStep(current, e.Status)
	}
	return out
}

// AttributionResult summarizes a session attribution pass
type AttributionResult struct {
	Bills     int // bills scanned
	Skipped   int // bills whose type never changes chamber
	Failed    int
	Corrected int // status rows whose chamber changed
}

// Attributor rewrites stored status chambers from each bill's full history
type Attributor struct {
	store  AttributionStore
	logger *slog.Logger
}

// NewAttributor creates an Attributor
func NewAttributor(store AttributionStore, logger *slog.Logger) *Attributor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Attributor{store: store, logger: logger}
}

// AttributeBill recomputes chambers for one bill and writes only the rows
// that differ. Running it twice on the same history changes nothing the
// second time.
func (a *Attributor) AttributeBill(ctx context.Context, bill model.Bill) (int, error) {
	if !bill.CrossesChambers() {
		return 0, nil
	}

	events, err := a.store.ListBillStatuses(ctx, bill.ID, bill.SessionID)
	if err != nil {
		return 0, fmt.Errorf("list statuses for %s: %w", bill.Number, err)
	}
	SortEvents(events)

	corrected := 0
	for i, chamber := range Attribute(bill.OriginatingChamber(), events) {
		if events[i].Chamber == chamber {
			continue
		}
		if err := a.store.UpdateBillStatusChamber(ctx, events[i].ID, chamber); err != nil {
			return corrected, fmt.Errorf("update status %d for %s: %w", events[i].ID, bill.Number, err)
		}
		corrected++
	}

	if corrected > 0 {
		a.logger.Debug("chamber attribution corrected", "bill", bill.Number, "rows", corrected)
	}
	return corrected, nil
}

// AttributeSession runs AttributeBill over every bill in the session.
// A failing bill is logged and the pass continues.
func (a *Attributor) AttributeSession(ctx context.Context, sessionID int64) (AttributionResult, error) {
	bills, err := a.store.ListBills(ctx, sessionID)
	if err != nil {
		return AttributionResult{}, fmt.Errorf("list bills: %w", err)
	}

	var res AttributionResult
	for _, bill := range bills {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !bill.CrossesChambers() {
			res.Skipped++
			continue
		}

		res.Bills++
		n, err := a.AttributeBill(ctx, bill)
		res.Corrected += n
		if err != nil {
			res.Failed++
			a.logger.Warn("chamber attribution failed", "bill", bill.Number, "error", err)
		}
	}

	return res, nil
}
