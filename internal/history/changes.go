package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ppiankov/billtrack/internal/cache"
)

// ChangeDetector compares the latest per-bill statuses against the snapshot
// saved by the previous run.
type ChangeDetector struct {
	cache  cache.Cache
	logger *slog.Logger
}

// NewChangeDetector creates a detector persisting snapshots in c
func NewChangeDetector(c cache.Cache, logger *slog.Logger) *ChangeDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeDetector{cache: c, logger: logger}
}

// SnapshotKey is the cache key of a session's status snapshot
func SnapshotKey(sessionCode string) string {
	return cache.Key("history-snapshot", sessionCode)
}

// DetectChanged returns the ids in current whose status is new or differs
// from the snapshot stored under key, sorted. current always replaces the
// snapshot; a missing or unreadable snapshot counts as empty.
// A failure to save is returned together with the changed ids.
func (d *ChangeDetector) DetectChanged(current map[string]string, key string) ([]string, error) {
	previous := d.load(key)

	changed := make([]string, 0)
	for id, status := range current {
		if prev, ok := previous[id]; !ok || prev != status {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)

	data, err := json.Marshal(current)
	if err != nil {
		return changed, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := d.cache.Set(key, data, 0); err != nil {
		return changed, fmt.Errorf("save snapshot: %w", err)
	}

	d.logger.Debug("change detection complete", "key", key, "current", len(current), "previous", len(previous), "changed", len(changed))
	return changed, nil
}

func (d *ChangeDetector) load(key string) map[string]string {
	data, ok := d.cache.Get(key)
	if !ok {
		return map[string]string{}
	}

	var snapshot map[string]string
	if err := json.Unmarshal(data, &snapshot); err != nil || snapshot == nil {
		d.logger.Warn("unreadable change snapshot, treating as empty", "key", key, "error", err)
		return map[string]string{}
	}
	return snapshot
}
