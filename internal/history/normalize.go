package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/billtrack/internal/lis"
	"github.com/ppiankov/billtrack/internal/model"
)

// eventDateLayouts are the timestamp shapes seen from the upstream API
var eventDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,
	model.DateLayout,
	"2006-01-02",
	"1/2/2006 3:04:05 PM",
	"1/2/2006",
}

// ParseEventDate parses an upstream or canonical event timestamp
func ParseEventDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// Normalize converts raw upstream events into canonical events, oldest first.
// Dates that cannot be parsed are passed through untouched and sort last;
// EventStore skips them.
func Normalize(raw []lis.Event) []model.HistoryEvent {
	type keyed struct {
		event model.HistoryEvent
		at    time.Time
		ok    bool
	}

	items := make([]keyed, 0, len(raw))
	for _, e := range raw {
		at, err := ParseEventDate(e.EventDate)
		date := strings.TrimSpace(e.EventDate)
		if err == nil {
			date = at.Format(model.DateLayout)
		}

		items = append(items, keyed{
			event: model.HistoryEvent{
				Chamber:   model.ChamberFromCode(e.ChamberCode),
				Date:      date,
				Status:    CleanStatus(e.Description),
				LISVoteID: strings.TrimSpace(e.VoteID),
			},
			at: at,
			ok: err == nil,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok
		}
		return items[i].at.Before(items[j].at)
	})

	out := make([]model.HistoryEvent, len(items))
	for i, it := range items {
		out[i] = it.event
	}
	return out
}

// CleanStatus trims a status description and collapses internal whitespace
func CleanStatus(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
