package history

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/billtrack/internal/model"
	"github.com/ppiankov/billtrack/internal/store"
)

func sampleEvents() []model.HistoryEvent {
	return []model.HistoryEvent{
		{Chamber: model.ChamberHouse, Date: "2025-01-08 09:00:00", Status: "Prefiled and ordered printed"},
		{Chamber: model.ChamberHouse, Date: "2025-01-15 10:00:00", Status: "Referred to Committee on Finance"},
		{Chamber: model.ChamberHouse, Date: "2025-01-20 12:00:00", Status: "Passed House", LISVoteID: "H0120V0003"},
	}
}

func TestEventStore_Idempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	es := NewEventStore(mem, nil)

	n, err := es.Store(ctx, 1, 7, sampleEvents())
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("first store: expected 3 rows, got %d", n)
	}

	n, err = es.Store(ctx, 1, 7, sampleEvents())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second store: expected 0 rows, got %d", n)
	}

	if rows := len(mem.BillStatuses()); rows != 3 {
		t.Errorf("expected 3 stored rows, got %d", rows)
	}
}

func TestEventStore_InCallDedup(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	es := NewEventStore(mem, nil)

	events := append(sampleEvents(),
		model.HistoryEvent{Chamber: model.ChamberHouse, Date: "2025-01-15 10:00:00", Status: "Referred to  Committee on Finance "},
		model.HistoryEvent{Chamber: model.ChamberHouse, Date: "2025-01-15T10:00:00", Status: "Referred to Committee on Finance"},
	)

	n, err := es.Store(ctx, 1, 7, events)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected duplicates skipped, got %d rows", n)
	}
}

func TestEventStore_SkipsInvalid(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	es := NewEventStore(mem, nil)

	n, err := es.Store(ctx, 1, 7, []model.HistoryEvent{
		{Chamber: model.ChamberHouse, Date: "2025-01-08 09:00:00", Status: "   "},
		{Chamber: model.ChamberHouse, Date: "someday", Status: "Continued"},
		{Chamber: model.ChamberHouse, Date: "2025-01-09 09:00:00", Status: "Referred"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected only the valid event written, got %d", n)
	}
}

func TestEventStore_FillsVoteIDLater(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	es := NewEventStore(mem, nil)

	events := sampleEvents()
	events[2].LISVoteID = ""
	if _, err := es.Store(ctx, 1, 7, events); err != nil {
		t.Fatal(err)
	}

	n, err := es.Store(ctx, 1, 7, sampleEvents())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected vote id fill to count once, got %d", n)
	}
}

type failingWriter struct{ err error }

func (f failingWriter) UpsertBillStatus(context.Context, model.BillStatusEvent) (bool, error) {
	return false, f.err
}

func TestEventStore_WriterError(t *testing.T) {
	boom := errors.New("connection reset")
	es := NewEventStore(failingWriter{err: boom}, nil)

	_, err := es.Store(context.Background(), 1, 7, sampleEvents())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped writer error, got %v", err)
	}
}
