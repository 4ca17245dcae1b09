package lis

// Legislation is one entry of the session legislation list
type Legislation struct {
	LegislationID     int64  `json:"LegislationID"`
	LegislationNumber string `json:"LegislationNumber"` // "HB1"
	LegislationStatus string `json:"LegislationStatus"` // latest status text
}

// Event is a raw legislation history event
type Event struct {
	ChamberCode string `json:"ChamberCode"`
	EventDate   string `json:"EventDate"`
	Description string `json:"Description"`
	VoteID      string `json:"VoteID,omitempty"`
}

// Vote is a raw roll-call vote
type Vote struct {
	VoteID          string       `json:"VoteID"`
	ChamberCode     string       `json:"ChamberCode"`
	CommitteeNumber string       `json:"CommitteeNumber,omitempty"`
	VoteTally       string       `json:"VoteTally"` // "36-Y 1-N 1-X"
	VoteDate        string       `json:"VoteDate,omitempty"`
	VoteMember      []VoteMember `json:"VoteMember"`
}

// VoteMember is one legislator's response on a vote
type VoteMember struct {
	MemberNumber string `json:"MemberNumber"`
	ResponseCode string `json:"ResponseCode"`
}

type legislationListResponse struct {
	Legislations []Legislation `json:"Legislations"`
}

type eventHistoryResponse struct {
	LegislationEvents []Event `json:"LegislationEvents"`
}

type voteListResponse struct {
	Votes []Vote `json:"Votes"`
}
