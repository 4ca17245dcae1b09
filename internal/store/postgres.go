package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ppiankov/billtrack/internal/model"
)

// Postgres is the gorm-backed repository
type Postgres struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPostgres wraps an open gorm handle
func NewPostgres(db *gorm.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// UpsertBillStatus inserts a status row. On a natural-key conflict the only
// permitted change is filling a missing lis_vote_id, so re-ingesting the same
// history affects zero rows and never reverts chamber corrections.
func (r *Postgres) UpsertBillStatus(ctx context.Context, event model.BillStatusEvent) (bool, error) {
	row := billStatusRowFromModel(event)
	row.ID = 0

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bill_id"}, {Name: "session_id"}, {Name: "status"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"lis_vote_id": gorm.Expr("EXCLUDED.lis_vote_id"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("bills_status.lis_vote_id IS NULL AND EXCLUDED.lis_vote_id IS NOT NULL"),
		}},
	}).Create(&row)
	if res.Error != nil {
		return false, r.logError("store_upsert_bill_status_failed", res.Error,
			"bill_id", event.BillID,
			"status", event.Status,
		)
	}
	return res.RowsAffected > 0, nil
}

func (r *Postgres) ListBills(ctx context.Context, sessionID int64) ([]model.Bill, error) {
	var rows []billRow
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("store_list_bills_failed", err, "session_id", sessionID)
	}

	bills := make([]model.Bill, len(rows))
	for i, row := range rows {
		bills[i] = row.toModel()
	}
	return bills, nil
}

func (r *Postgres) ListBillStatuses(ctx context.Context, billID, sessionID int64) ([]model.BillStatusEvent, error) {
	var rows []billStatusRow
	if err := r.db.WithContext(ctx).
		Where("bill_id = ? AND session_id = ?", billID, sessionID).
		Order("date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("store_list_bill_statuses_failed", err, "bill_id", billID)
	}

	events := make([]model.BillStatusEvent, len(rows))
	for i, row := range rows {
		events[i] = row.toModel()
	}
	return events, nil
}

func (r *Postgres) UpdateBillStatusChamber(ctx context.Context, id int64, chamber model.Chamber) error {
	err := r.db.WithContext(ctx).
		Model(&billStatusRow{}).
		Where("id = ?", id).
		Update("chamber", nullableString(string(chamber))).
		Error
	if err != nil {
		return r.logError("store_update_bill_status_chamber_failed", err, "id", id, "chamber", chamber)
	}
	return nil
}

// ReferencedVoteIDs returns the distinct vote ids cited by the session's status rows
func (r *Postgres) ReferencedVoteIDs(ctx context.Context, sessionID int64) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&billStatusRow{}).
		Distinct("lis_vote_id").
		Where("session_id = ? AND lis_vote_id IS NOT NULL AND lis_vote_id <> ''", sessionID).
		Pluck("lis_vote_id", &ids).
		Error
	if err != nil {
		return nil, r.logError("store_referenced_vote_ids_failed", err, "session_id", sessionID)
	}
	return ids, nil
}

// ExistingVoteIDs returns the lis ids of votes already stored for the session
func (r *Postgres) ExistingVoteIDs(ctx context.Context, sessionID int64) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&voteRow{}).
		Where("session_id = ?", sessionID).
		Pluck("lis_id", &ids).
		Error
	if err != nil {
		return nil, r.logError("store_existing_vote_ids_failed", err, "session_id", sessionID)
	}
	return ids, nil
}

func (r *Postgres) ListCommittees(ctx context.Context) ([]model.Committee, error) {
	var rows []committeeRow
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("store_list_committees_failed", err)
	}

	committees := make([]model.Committee, len(rows))
	for i, row := range rows {
		committees[i] = model.Committee{
			ID:       row.ID,
			Number:   row.Number,
			Chamber:  model.Chamber(row.Chamber),
			ParentID: row.ParentID,
		}
	}
	return committees, nil
}

// FindRepresentative resolves a legislator by upstream member number and chamber
func (r *Postgres) FindRepresentative(ctx context.Context, memberNumber string, chamber model.Chamber) (model.Representative, error) {
	var row representativeRow
	err := r.db.WithContext(ctx).
		Where("member_number = ? AND chamber = ?", strings.TrimSpace(memberNumber), string(chamber)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Representative{}, ErrNotFound
		}
		return model.Representative{}, r.logError("store_find_representative_failed", err,
			"member_number", memberNumber,
			"chamber", chamber,
		)
	}
	return model.Representative{
		ID:           row.ID,
		MemberNumber: row.MemberNumber,
		Chamber:      model.Chamber(row.Chamber),
		Party:        row.Party,
	}, nil
}

// UpsertVote writes a vote header and returns its id. An existing row keeps
// its date when the new one has none, and always keeps its partisanship.
func (r *Postgres) UpsertVote(ctx context.Context, vote model.Vote) (int64, error) {
	row := voteRowFromModel(vote)
	row.ID = 0
	row.Partisanship = nil

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "lis_id"}, {Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"chamber":      row.Chamber,
			"tally":        row.Tally,
			"total":        row.Total,
			"outcome":      row.Outcome,
			"committee_id": row.CommitteeID,
			"date":         gorm.Expr("COALESCE(EXCLUDED.date, votes.date)"),
		}),
	}).Create(&row)
	if res.Error != nil {
		return 0, r.logError("store_upsert_vote_failed", res.Error, "lis_id", vote.LISID)
	}
	return row.ID, nil
}

func (r *Postgres) UpsertRepresentativeVote(ctx context.Context, rv model.RepresentativeVote) error {
	row := representativeVoteRow{
		RepresentativeID: rv.RepresentativeID,
		VoteID:           rv.VoteID,
		Response:         rv.Response,
		DateCreated:      rv.CreatedAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "representative_id"}, {Name: "vote_id"}},
		DoUpdates: clause.Assignments(map[string]any{"response": row.Response}),
	}).Create(&row).Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return r.logError("store_upsert_representative_vote_failed", err,
			"representative_id", rv.RepresentativeID,
			"vote_id", rv.VoteID,
		)
	}
	return nil
}

// ClearOversizedCommitteeVotes nulls committee_id on the session's votes in
// chamber whose total exceeds ceiling, returning the number of rows changed.
func (r *Postgres) ClearOversizedCommitteeVotes(ctx context.Context, sessionID int64, chamber model.Chamber, ceiling int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&voteRow{}).
		Where("session_id = ? AND chamber = ? AND committee_id IS NOT NULL AND total > ?", sessionID, string(chamber), ceiling).
		Update("committee_id", nil)
	if res.Error != nil {
		return 0, r.logError("store_clear_committee_votes_failed", res.Error, "chamber", chamber)
	}
	return res.RowsAffected, nil
}

// BackfillVoteDates copies the earliest referencing status date onto votes
// that have none.
func (r *Postgres) BackfillVoteDates(ctx context.Context, sessionID int64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE votes SET date = (
			SELECT MIN(bs.date) FROM bills_status bs
			WHERE bs.session_id = votes.session_id AND bs.lis_vote_id = votes.lis_id
		)
		WHERE votes.session_id = ? AND votes.date IS NULL
			AND EXISTS (
				SELECT 1 FROM bills_status bs
				WHERE bs.session_id = votes.session_id AND bs.lis_vote_id = votes.lis_id
			)
	`, sessionID)
	if res.Error != nil {
		return 0, r.logError("store_backfill_vote_dates_failed", res.Error, "session_id", sessionID)
	}
	return res.RowsAffected, nil
}

// StreamPartyResponseCounts calls fn with per-vote, per-party Y/N counts for
// the session's unscored votes, ordered by vote id.
func (r *Postgres) StreamPartyResponseCounts(ctx context.Context, sessionID int64, fn func(model.PartyResponseCount) error) error {
	rows, err := r.db.WithContext(ctx).Raw(`
		SELECT rv.vote_id, rep.party, rv.response, COUNT(*) AS count
		FROM representatives_votes rv
		JOIN votes v ON v.id = rv.vote_id
		JOIN representatives rep ON rep.id = rv.representative_id
		WHERE v.session_id = ? AND v.partisanship IS NULL
			AND rep.party IN ('D', 'R') AND rv.response IN ('Y', 'N')
		GROUP BY rv.vote_id, rep.party, rv.response
		ORDER BY rv.vote_id, rep.party, rv.response
	`, sessionID).Rows()
	if err != nil {
		return r.logError("store_stream_party_counts_failed", err, "session_id", sessionID)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var row partyResponseRow
		if err := r.db.ScanRows(rows, &row); err != nil {
			return r.logError("store_scan_party_count_failed", err)
		}
		if err := fn(model.PartyResponseCount{
			VoteID:   row.VoteID,
			Party:    row.Party,
			Response: row.Response,
			Count:    row.Count,
		}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SetPartisanship stores a vote's score unless one is already set
func (r *Postgres) SetPartisanship(ctx context.Context, voteID int64, score float64) error {
	err := r.db.WithContext(ctx).
		Model(&voteRow{}).
		Where("id = ? AND partisanship IS NULL", voteID).
		Update("partisanship", score).
		Error
	if err != nil {
		return r.logError("store_set_partisanship_failed", err, "vote_id", voteID)
	}
	return nil
}

func (r *Postgres) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+4)
	fields = append(fields,
		"event", event,
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("store operation failed", fields...)
	return err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
