package history

import (
	"testing"

	"github.com/ppiankov/billtrack/internal/lis"
	"github.com/ppiankov/billtrack/internal/model"
)

func TestNormalize_Empty(t *testing.T) {
	got := Normalize(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestNormalize_SortsAndCleans(t *testing.T) {
	raw := []lis.Event{
		{ChamberCode: "S", EventDate: "2025-02-10T14:30:00", Description: "  Passed   Senate (40-Y 0-N) ", VoteID: " S0201V0002 "},
		{ChamberCode: "H", EventDate: "2025-01-08T09:00:00", Description: "Prefiled and ordered printed"},
		{ChamberCode: "H", EventDate: "2025-01-20T12:00:00", Description: "Passed House"},
	}

	got := Normalize(raw)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}

	want := []model.HistoryEvent{
		{Chamber: model.ChamberHouse, Date: "2025-01-08 09:00:00", Status: "Prefiled and ordered printed"},
		{Chamber: model.ChamberHouse, Date: "2025-01-20 12:00:00", Status: "Passed House"},
		{Chamber: model.ChamberSenate, Date: "2025-02-10 14:30:00", Status: "Passed Senate (40-Y 0-N)", LISVoteID: "S0201V0002"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNormalize_UnparseableDateSortsLast(t *testing.T) {
	raw := []lis.Event{
		{ChamberCode: "H", EventDate: "soon", Description: "Continued to next session"},
		{ChamberCode: "H", EventDate: "2025-01-08", Description: "Referred to Committee"},
	}

	got := Normalize(raw)
	if got[0].Date != "2025-01-08 00:00:00" {
		t.Errorf("expected parsed event first, got %+v", got[0])
	}
	if got[1].Date != "soon" {
		t.Errorf("expected raw date kept, got %q", got[1].Date)
	}
}

func TestParseEventDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"2025-01-08T09:00:00", "2025-01-08 09:00:00", false},
		{"2025-01-08T09:00:00.123", "2025-01-08 09:00:00", false},
		{"2025-01-08 09:00:00", "2025-01-08 09:00:00", false},
		{"2025-01-08", "2025-01-08 00:00:00", false},
		{"1/8/2025 9:00:00 AM", "2025-01-08 09:00:00", false},
		{"", "", true},
		{"not a date", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseEventDate(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEventDate(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err == nil && got.Format(model.DateLayout) != tt.want {
				t.Errorf("ParseEventDate(%q) = %s, want %s", tt.raw, got.Format(model.DateLayout), tt.want)
			}
		})
	}
}

func TestCleanStatus(t *testing.T) {
	if got := CleanStatus("\tReported from\n Finance  "); got != "Reported from Finance" {
		t.Errorf("CleanStatus = %q", got)
	}
	if got := CleanStatus("   "); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
