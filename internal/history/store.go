package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/billtrack/internal/model"
)

// StatusWriter upserts a status row keyed on (bill, session, status, date).
// It reports whether a row was inserted or changed.
type StatusWriter interface {
	UpsertBillStatus(ctx context.Context, event model.BillStatusEvent) (bool, error)
}

// EventStore persists normalized history events
type EventStore struct {
	writer StatusWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewEventStore creates an EventStore writing through w
func NewEventStore(w StatusWriter, logger *slog.Logger) *EventStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStore{writer: w, logger: logger, now: time.Now}
}

// Store writes events for one bill and returns how many rows were written.
// Events with an empty status or unparseable date are skipped, as are repeats
// of a (status, date) pair already seen in this call. Storing the same events
// twice writes nothing the second time.
func (s *EventStore) Store(ctx context.Context, billID, sessionID int64, events []model.HistoryEvent) (int, error) {
	type pair struct {
		status string
		date   string
	}

	seen := make(map[pair]struct{}, len(events))
	written := 0

	for _, e := range events {
		status := CleanStatus(e.Status)
		if status == "" {
			s.logger.Debug("skipping event without status", "bill_id", billID, "date", e.Date)
			continue
		}

		at, err := ParseEventDate(e.Date)
		if err != nil {
			s.logger.Warn("skipping event with bad date", "bill_id", billID, "status", status, "error", err)
			continue
		}

		key := pair{status: status, date: at.Format(model.DateLayout)}
		if _, dup := seen[key]; dup {
			s.logger.Debug("skipping duplicate event", "bill_id", billID, "status", status, "date", key.date)
			continue
		}
		seen[key] = struct{}{}

		ok, err := s.writer.UpsertBillStatus(ctx, model.BillStatusEvent{
			BillID:    billID,
			SessionID: sessionID,
			Chamber:   e.Chamber,
			Status:    status,
			Date:      at,
			LISVoteID: e.LISVoteID,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			return written, fmt.Errorf("upsert status %q for bill %d: %w", status, billID, err)
		}
		if ok {
			written++
		}
	}

	return written, nil
}
