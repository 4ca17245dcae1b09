package store

import (
	"time"

	"github.com/ppiankov/billtrack/internal/model"
)

type billRow struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	Number    string `gorm:"column:number;not null"`
	SessionID int64  `gorm:"column:session_id;not null;index"`
	LISID     string `gorm:"column:lis_id"`
}

func (billRow) TableName() string {
	return "bills"
}

func (r billRow) toModel() model.Bill {
	return model.Bill{ID: r.ID, Number: r.Number, SessionID: r.SessionID, LISID: r.LISID}
}

type representativeRow struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	MemberNumber string `gorm:"column:member_number;not null;index:representatives_member,priority:1"`
	Chamber      string `gorm:"column:chamber;not null;index:representatives_member,priority:2"`
	Party        string `gorm:"column:party"`
}

func (representativeRow) TableName() string {
	return "representatives"
}

type committeeRow struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	Number   string `gorm:"column:number;not null"`
	Chamber  string `gorm:"column:chamber"`
	ParentID *int64 `gorm:"column:parent_id"`
}

func (committeeRow) TableName() string {
	return "committees"
}

type billStatusRow struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	BillID      int64     `gorm:"column:bill_id;not null;uniqueIndex:bills_status_natural_key,priority:1"`
	SessionID   int64     `gorm:"column:session_id;not null;uniqueIndex:bills_status_natural_key,priority:2"`
	Chamber     *string   `gorm:"column:chamber"`
	Status      string    `gorm:"column:status;not null;uniqueIndex:bills_status_natural_key,priority:3"`
	Date        time.Time `gorm:"column:date;not null;uniqueIndex:bills_status_natural_key,priority:4"`
	LISVoteID   *string   `gorm:"column:lis_vote_id;index"`
	DateCreated time.Time `gorm:"column:date_created;not null"`
}

func (billStatusRow) TableName() string {
	return "bills_status"
}

func billStatusRowFromModel(e model.BillStatusEvent) billStatusRow {
	return billStatusRow{
		ID:          e.ID,
		BillID:      e.BillID,
		SessionID:   e.SessionID,
		Chamber:     nullableString(string(e.Chamber)),
		Status:      e.Status,
		Date:        e.Date,
		LISVoteID:   nullableString(e.LISVoteID),
		DateCreated: e.CreatedAt,
	}
}

func (r billStatusRow) toModel() model.BillStatusEvent {
	return model.BillStatusEvent{
		ID:        r.ID,
		BillID:    r.BillID,
		SessionID: r.SessionID,
		Chamber:   model.Chamber(derefString(r.Chamber)),
		Status:    r.Status,
		Date:      r.Date,
		LISVoteID: derefString(r.LISVoteID),
		CreatedAt: r.DateCreated,
	}
}

type voteRow struct {
	ID           int64      `gorm:"column:id;primaryKey"`
	LISID        string     `gorm:"column:lis_id;not null;uniqueIndex:votes_natural_key,priority:1"`
	SessionID    int64      `gorm:"column:session_id;not null;uniqueIndex:votes_natural_key,priority:2"`
	Chamber      string     `gorm:"column:chamber;not null"`
	Tally        string     `gorm:"column:tally;not null"`
	Total        int        `gorm:"column:total;not null"`
	Outcome      string     `gorm:"column:outcome;not null"`
	CommitteeID  *int64     `gorm:"column:committee_id"`
	Date         *time.Time `gorm:"column:date"`
	Partisanship *float64   `gorm:"column:partisanship"`
}

func (voteRow) TableName() string {
	return "votes"
}

func voteRowFromModel(v model.Vote) voteRow {
	return voteRow{
		ID:           v.ID,
		LISID:        v.LISID,
		SessionID:    v.SessionID,
		Chamber:      string(v.Chamber),
		Tally:        v.Tally,
		Total:        v.Total,
		Outcome:      string(v.Outcome),
		CommitteeID:  v.CommitteeID,
		Date:         v.Date,
		Partisanship: v.Partisanship,
	}
}

func (r voteRow) toModel() model.Vote {
	return model.Vote{
		ID:           r.ID,
		LISID:        r.LISID,
		SessionID:    r.SessionID,
		Chamber:      model.Chamber(r.Chamber),
		Tally:        r.Tally,
		Total:        r.Total,
		Outcome:      model.Outcome(r.Outcome),
		CommitteeID:  r.CommitteeID,
		Date:         r.Date,
		Partisanship: r.Partisanship,
	}
}

type representativeVoteRow struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	RepresentativeID int64     `gorm:"column:representative_id;not null;uniqueIndex:representatives_votes_natural_key,priority:1"`
	VoteID           int64     `gorm:"column:vote_id;not null;uniqueIndex:representatives_votes_natural_key,priority:2"`
	Response         string    `gorm:"column:response;not null"`
	DateCreated      time.Time `gorm:"column:date_created;not null"`
}

func (representativeVoteRow) TableName() string {
	return "representatives_votes"
}

type partyResponseRow struct {
	VoteID   int64  `gorm:"column:vote_id"`
	Party    string `gorm:"column:party"`
	Response string `gorm:"column:response"`
	Count    int    `gorm:"column:count"`
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
