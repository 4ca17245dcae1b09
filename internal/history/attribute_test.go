package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/billtrack/internal/model"
	"github.com/ppiankov/billtrack/internal/store"
)

func statuses(list ...string) []model.BillStatusEvent {
	base := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	out := make([]model.BillStatusEvent, len(list))
	for i, s := range list {
		out[i] = model.BillStatusEvent{ID: int64(i + 1), Status: s, Date: base.AddDate(0, 0, i)}
	}
	return out
}

func TestAttribute(t *testing.T) {
	H, S := model.ChamberHouse, model.ChamberSenate

	tests := []struct {
		name   string
		origin model.Chamber
		events []model.BillStatusEvent
		want   []model.Chamber
	}{
		{
			name:   "no passage markers",
			origin: S,
			events: statuses("Prefiled", "Referred to Committee", "Continued to 2026"),
			want:   []model.Chamber{S, S, S},
		},
		{
			name:   "single crossing",
			origin: H,
			events: statuses("Prefiled", "Passed House (60-Y 40-N)", "Referred to Committee on Finance", "Passed Senate", "Signed by Governor"),
			want:   []model.Chamber{H, H, S, S, H},
		},
		{
			name:   "ping pong on amendments",
			origin: S,
			events: statuses("Passed Senate", "Passed House with amendments", "Senate concurred", "PASSED SENATE", "Enrolled"),
			want:   []model.Chamber{S, H, S, S, H},
		},
		{
			name:   "empty",
			origin: H,
			events: nil,
			want:   []model.Chamber{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Attribute(tt.origin, tt.events)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d chambers, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d (%q) = %s, want %s", i, tt.events[i].Status, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAttribute_StateFlipsOncePerMarker(t *testing.T) {
	events := statuses("Prefiled", "Passed House", "Reported", "Passed Senate", "Conference report", "Passed House", "Signed")

	current := model.ChamberHouse
	flips, markers := 0, 0
	for _, e := range events {
		lower := strings.ToLower(e.Status)
		if strings.Contains(lower, "passed house") || strings.Contains(lower, "passed senate") {
			markers++
		}
		_, next := attributeStep(current, e.Status)
		if next != current {
			flips++
		}
		current = next
	}

	if markers != 3 || flips != markers {
		t.Errorf("expected one flip per marker, got %d flips for %d markers", flips, markers)
	}
}

func TestSortEvents(t *testing.T) {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	events := []model.BillStatusEvent{
		{ID: 3, Date: day},
		{ID: 1, Date: day.Add(time.Hour)},
		{ID: 2, Date: day},
	}
	SortEvents(events)

	if events[0].ID != 2 || events[1].ID != 3 || events[2].ID != 1 {
		t.Errorf("unexpected order: %d %d %d", events[0].ID, events[1].ID, events[2].ID)
	}
}

func seedBill(t *testing.T, mem *store.Memory, number string, list ...string) model.Bill {
	t.Helper()
	ctx := context.Background()
	bill := model.Bill{Number: number, SessionID: 7}
	bill.ID = mem.AddBill(bill)

	for _, e := range statuses(list...) {
		e.ID = 0
		e.BillID = bill.ID
		e.SessionID = bill.SessionID
		e.Chamber = model.ChamberHouse
		if _, err := mem.UpsertBillStatus(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	return bill
}

func TestAttributor_AttributeBillIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	bill := seedBill(t, mem, "hb10", "Prefiled", "Passed House", "Referred to Committee", "Passed Senate", "Signed by Governor")

	a := NewAttributor(mem, nil)

	n, err := a.AttributeBill(ctx, bill)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows corrected, got %d", n)
	}

	n, err = a.AttributeBill(ctx, bill)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no corrections on rerun, got %d", n)
	}

	want := []model.Chamber{model.ChamberHouse, model.ChamberHouse, model.ChamberSenate, model.ChamberSenate, model.ChamberHouse}
	rows, _ := mem.ListBillStatuses(ctx, bill.ID, bill.SessionID)
	for i, row := range rows {
		if row.Chamber != want[i] {
			t.Errorf("row %d (%q) = %s, want %s", i, row.Status, row.Chamber, want[i])
		}
	}
}

func TestAttributor_AttributeSessionSkipsResolutions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	seedBill(t, mem, "sb5", "Prefiled", "Passed Senate", "Passed House")
	resolution := seedBill(t, mem, "hr3", "Passed Senate", "Agreed to")

	res, err := NewAttributor(mem, nil).AttributeSession(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.Bills != 1 || res.Skipped != 1 || res.Failed != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Corrected != 2 {
		t.Errorf("expected sb5 rows corrected to senate, got %d", res.Corrected)
	}

	rows, _ := mem.ListBillStatuses(ctx, resolution.ID, 7)
	for _, row := range rows {
		if row.Chamber != model.ChamberHouse {
			t.Errorf("expected resolution rows untouched, got %s", row.Chamber)
		}
	}
}
