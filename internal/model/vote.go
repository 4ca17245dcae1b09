package model

import "time"

// Outcome is the pass/fail result of a roll-call vote
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

// Vote is a roll-call vote header
type Vote struct {
	ID           int64      `json:"id"`
	LISID        string     `json:"lis_id"`
	SessionID    int64      `json:"session_id"`
	Chamber      Chamber    `json:"chamber"`
	Tally        string     `json:"tally"`                  // "Y-N" or "Y-N-X"
	Total        int        `json:"total"`
	Outcome      Outcome    `json:"outcome"`
	CommitteeID  *int64     `json:"committee_id,omitempty"` // nil for floor votes
	Date         *time.Time `json:"date,omitempty"`
	Partisanship *float64   `json:"partisanship,omitempty"` // 0..1, set once
}

// RepresentativeVote is one legislator's response on a vote, unique on (RepresentativeID, VoteID)
type RepresentativeVote struct {
	RepresentativeID int64     `json:"representative_id"`
	VoteID           int64     `json:"vote_id"`
	Response         string    `json:"response"`
	CreatedAt        time.Time `json:"created_at"`
}

// Representative is a legislator as synced into the store
type Representative struct {
	ID           int64   `json:"id"`
	MemberNumber string  `json:"member_number"`
	Chamber      Chamber `json:"chamber"`
	Party        string  `json:"party"` // "D", "R", ...
}

// Committee is a standing committee or subcommittee
type Committee struct {
	ID       int64   `json:"id"`
	Number   string  `json:"number"`              // upstream committee number, e.g. "H08"
	Chamber  Chamber `json:"chamber"`
	ParentID *int64  `json:"parent_id,omitempty"` // set for subcommittees
}

// PartyResponseCount is one aggregate row of the partisanship input stream
type PartyResponseCount struct {
	VoteID   int64  `json:"vote_id"`
	Party    string `json:"party"`    // "D" or "R"
	Response string `json:"response"` // "Y" or "N"
	Count    int    `json:"count"`
}
