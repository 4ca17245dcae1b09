package model

import (
	"strings"
	"time"
)

// DateLayout is the canonical timestamp format for status events
const DateLayout = "2006-01-02 15:04:05"

// Bill is a piece of legislation as known to the relational store
type Bill struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`     // e.g. "hb1", "sj12"
	SessionID int64  `json:"session_id"`
	LISID     string `json:"lis_id"`     // upstream LegislationID
}

// BillType returns the lowercased alphabetic prefix of a bill number ("hb1" -> "hb")
func BillType(number string) string {
	number = strings.ToLower(strings.TrimSpace(number))
	end := 0
	for end < len(number) && number[end] >= 'a' && number[end] <= 'z' {
		end++
	}
	return number[:end]
}

// OriginatingChamber derives the chamber a bill was introduced in from its
// number prefix: hb/hj/hr are house, sb/sj/sr are senate.
func OriginatingChamber(number string) Chamber {
	switch BillType(number) {
	case "hb", "hj", "hr":
		return ChamberHouse
	case "sb", "sj", "sr":
		return ChamberSenate
	default:
		return ""
	}
}

// Type returns the bill's number prefix
func (b Bill) Type() string {
	return BillType(b.Number)
}

// OriginatingChamber returns the chamber the bill was introduced in
func (b Bill) OriginatingChamber() Chamber {
	return OriginatingChamber(b.Number)
}

// CrossesChambers reports whether the bill type can move between chambers.
// Single-chamber resolutions (hr, sr) never do.
func (b Bill) CrossesChambers() bool {
	switch b.Type() {
	case "hb", "sb", "hj", "sj":
		return true
	default:
		return false
	}
}

// HistoryEvent is a normalized upstream history record
type HistoryEvent struct {
	Chamber   Chamber `json:"chamber,omitempty"`
	Date      string  `json:"date"`                  // DateLayout, or the raw value when unparseable
	Status    string  `json:"status"`
	LISVoteID string  `json:"lis_vote_id,omitempty"`
}

// BillStatusEvent is a persisted status row, unique on (BillID, SessionID, Status, Date)
type BillStatusEvent struct {
	ID        int64     `json:"id"`
	BillID    int64     `json:"bill_id"`
	SessionID int64     `json:"session_id"`
	Chamber   Chamber   `json:"chamber,omitempty"` // empty when unknown
	Status    string    `json:"status"`
	Date      time.Time `json:"date"`
	LISVoteID string    `json:"lis_vote_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
