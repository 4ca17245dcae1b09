package votes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/billtrack/internal/cache"
	"github.com/ppiankov/billtrack/internal/history"
	"github.com/ppiankov/billtrack/internal/lis"
	"github.com/ppiankov/billtrack/internal/model"
	"github.com/ppiankov/billtrack/internal/store"
	"github.com/ppiankov/billtrack/internal/worker"
)

// Store is the persistence surface the ingestor needs
type Store interface {
	ReferencedVoteIDs(ctx context.Context, sessionID int64) ([]string, error)
	ExistingVoteIDs(ctx context.Context, sessionID int64) ([]string, error)
	ListCommittees(ctx context.Context) ([]model.Committee, error)
	FindRepresentative(ctx context.Context, memberNumber string, chamber model.Chamber) (model.Representative, error)
	UpsertVote(ctx context.Context, vote model.Vote) (int64, error)
	UpsertRepresentativeVote(ctx context.Context, rv model.RepresentativeVote) error
	ClearOversizedCommitteeVotes(ctx context.Context, sessionID int64, chamber model.Chamber, ceiling int) (int64, error)
	BackfillVoteDates(ctx context.Context, sessionID int64) (int64, error)
}

// Source returns the raw upstream vote list for a session
type Source interface {
	GetVotesRaw(ctx context.Context, sessionCode string) ([]byte, error)
}

// Options configures one ingest run
type Options struct {
	SessionID         int64
	SessionCode       string
	CommitteeCeiling  model.ChamberCeiling // committee attribution only when total < ceiling
	CorrectionCeiling model.ChamberCeiling // committee_id cleared when total > ceiling
	Force             bool                 // ignore the content-hash gate
}

// Result summarizes an ingest run
type Result struct {
	Candidates        int
	Fetched           bool
	Unchanged         bool // upstream list identical to the previous run
	Listed            int  // votes in the upstream list
	Missing           int  // candidates absent from the upstream list
	Stored            int
	Skipped           int
	Failed            int
	Responses         int
	UnknownMembers    int
	CommitteesCleared int64
	DatesBackfilled   int64
}

// Ingestor pulls referenced roll-call votes into the store
type Ingestor struct {
	store  Store
	source Source
	cache  cache.Cache
	loop   worker.Loop
	logger *slog.Logger
	now    func() time.Time
}

// NewIngestor creates an Ingestor. The content hash of the last processed
// vote list is kept in c.
func NewIngestor(s Store, src Source, c cache.Cache, maxConsecutiveFailures int, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:  s,
		source: src,
		cache:  c,
		loop: worker.Loop{
			Name:                   "votes",
			MaxConsecutiveFailures: maxConsecutiveFailures,
			Logger:                 logger,
		},
		logger: logger,
		now:    time.Now,
	}
}

// HashKey is the cache key of a session's vote-list content hash
func HashKey(sessionCode string) string {
	return cache.Key("votes-hash", sessionCode)
}

// Candidates returns vote ids referenced by status rows but not yet stored
func (in *Ingestor) Candidates(ctx context.Context, sessionID int64) (map[string]struct{}, error) {
	referenced, err := in.store.ReferencedVoteIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("referenced vote ids: %w", err)
	}
	existing, err := in.store.ExistingVoteIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("existing vote ids: %w", err)
	}

	have := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		have[normalizeVoteID(id)] = struct{}{}
	}

	candidates := make(map[string]struct{})
	for _, id := range referenced {
		id = normalizeVoteID(id)
		if id == "" {
			continue
		}
		if _, ok := have[id]; !ok {
			candidates[id] = struct{}{}
		}
	}
	return candidates, nil
}

// Run ingests every candidate vote, then clears committee ids from votes too
// large to be committee votes and back-fills missing dates. The vote list
// hash is saved only when every candidate was processed without error.
func (in *Ingestor) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	candidates, err := in.Candidates(ctx, opts.SessionID)
	if err != nil {
		return res, err
	}
	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		in.logger.Info("no unresolved votes", "session", opts.SessionCode)
		return res, in.correct(ctx, opts, &res)
	}

	raw, err := in.source.GetVotesRaw(ctx, opts.SessionCode)
	if err != nil {
		return res, fmt.Errorf("fetch votes: %w", err)
	}
	res.Fetched = true

	hash := cache.ContentHash(raw)
	key := HashKey(opts.SessionCode)
	if !opts.Force && in.previousHash(key) == hash {
		res.Unchanged = true
		in.logger.Info("vote list unchanged since last run", "session", opts.SessionCode, "hash", hash[:12])
		return res, in.correct(ctx, opts, &res)
	}

	listed, err := lis.ParseVotes(raw)
	if err != nil {
		return res, err
	}
	res.Listed = len(listed)

	committees, err := in.committeeLookup(ctx)
	if err != nil {
		return res, err
	}

	var batch []lis.Vote
	for _, v := range listed {
		id := normalizeVoteID(v.VoteID)
		if _, ok := candidates[id]; ok {
			batch = append(batch, v)
			delete(candidates, id)
		}
	}
	res.Missing = len(candidates)
	if res.Missing > 0 {
		in.logger.Debug("referenced votes missing upstream", "count", res.Missing)
	}

	reps := cache.NewMemo[int64]()
	loopRes, loopErr := worker.Each(ctx, in.loop, batch, func(ctx context.Context, v lis.Vote) error {
		stored, err := in.ingestVote(ctx, opts, v, committees, reps, &res)
		if err != nil {
			return err
		}
		if stored {
			res.Stored++
		} else {
			res.Skipped++
		}
		return nil
	})
	res.Failed = loopRes.Failed
	in.logger.Debug("legislator lookups", "distinct", reps.Len(), "unknown_members", res.UnknownMembers)
	if loopErr != nil {
		return res, loopErr
	}

	if err := in.correct(ctx, opts, &res); err != nil {
		return res, err
	}

	// Failed candidates must stay eligible on the next run
	if res.Failed > 0 {
		in.logger.Warn("vote list hash not saved after item failures", "failed", res.Failed)
		return res, nil
	}
	if err := in.saveHash(key, hash); err != nil {
		in.logger.Warn("could not save vote list hash", "key", key, "error", err)
	}

	return res, nil
}

// correct nulls committee ids on oversized committee votes and back-fills
// missing vote dates. Both steps are idempotent and run on every completed
// path, including runs with no candidates or an unchanged vote list.
func (in *Ingestor) correct(ctx context.Context, opts Options, res *Result) error {
	for _, chamber := range []model.Chamber{model.ChamberHouse, model.ChamberSenate} {
		n, err := in.store.ClearOversizedCommitteeVotes(ctx, opts.SessionID, chamber, opts.CorrectionCeiling.For(chamber))
		if err != nil {
			return fmt.Errorf("clear %s committee votes: %w", chamber, err)
		}
		res.CommitteesCleared += n
	}

	n, err := in.store.BackfillVoteDates(ctx, opts.SessionID)
	if err != nil {
		return fmt.Errorf("backfill vote dates: %w", err)
	}
	res.DatesBackfilled = n
	return nil
}

// ingestVote persists one vote and its responses. It reports false when the
// record was skipped as unusable.
func (in *Ingestor) ingestVote(ctx context.Context, opts Options, v lis.Vote, committees map[string]int64, reps *cache.Memo[int64], res *Result) (bool, error) {
	logger := in.logger.With("vote", v.VoteID)

	chamber := model.ChamberFromCode(v.ChamberCode)
	if !chamber.Valid() {
		logger.Warn("skipping vote with unknown chamber", "chamber_code", v.ChamberCode)
		return false, nil
	}
	if len(v.VoteMember) == 0 {
		logger.Warn("skipping vote without member responses")
		return false, nil
	}

	tally, err := ParseTally(v.VoteTally)
	if err != nil {
		logger.Warn("skipping vote with unparseable tally", "error", err)
		return false, nil
	}

	vote := model.Vote{
		LISID:     normalizeVoteID(v.VoteID),
		SessionID: opts.SessionID,
		Chamber:   chamber,
		Tally:     tally.String(),
		Total:     tally.Total(),
		Outcome:   tally.Outcome(),
	}

	number := strings.ToUpper(strings.TrimSpace(v.CommitteeNumber))
	if number != "" && tally.Total() < opts.CommitteeCeiling.For(chamber) {
		if id, ok := committees[number]; ok {
			vote.CommitteeID = &id
		} else {
			logger.Debug("unknown committee number", "committee", number)
		}
	}

	if v.VoteDate != "" {
		if at, err := history.ParseEventDate(v.VoteDate); err == nil {
			vote.Date = &at
		}
	}

	voteID, err := in.store.UpsertVote(ctx, vote)
	if err != nil {
		return false, fmt.Errorf("upsert vote %s: %w", vote.LISID, err)
	}

	for _, m := range v.VoteMember {
		member := strings.TrimSpace(m.MemberNumber)
		response := strings.ToUpper(strings.TrimSpace(m.ResponseCode))
		if member == "" || response == "" {
			continue
		}

		repID, err := in.resolveRepresentative(ctx, reps, member, chamber)
		if err != nil {
			return true, err
		}
		if repID == 0 {
			res.UnknownMembers++
			logger.Warn("unknown legislator, response skipped", "member", member, "chamber", chamber)
			continue
		}

		err = in.store.UpsertRepresentativeVote(ctx, model.RepresentativeVote{
			RepresentativeID: repID,
			VoteID:           voteID,
			Response:         response,
			CreatedAt:        in.now().UTC(),
		})
		if errors.Is(err, store.ErrNotFound) {
			res.UnknownMembers++
			logger.Warn("legislator reference rejected, response skipped", "member", member)
			continue
		}
		if err != nil {
			return true, fmt.Errorf("upsert response of %s on %s: %w", member, vote.LISID, err)
		}
		res.Responses++
	}

	return true, nil
}

// resolveRepresentative returns the internal id for a member, or 0 when the
// member is unknown. Lookups, including misses, are memoized for the run.
func (in *Ingestor) resolveRepresentative(ctx context.Context, reps *cache.Memo[int64], member string, chamber model.Chamber) (int64, error) {
	key := cache.Key(string(chamber), member)
	if id, ok := reps.Get(key); ok {
		return id, nil
	}

	rep, err := in.store.FindRepresentative(ctx, member, chamber)
	switch {
	case errors.Is(err, store.ErrNotFound):
		reps.Set(key, 0)
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("find representative %s: %w", member, err)
	}

	reps.Set(key, rep.ID)
	return rep.ID, nil
}

// committeeLookup maps upstream committee numbers of top-level committees to ids
func (in *Ingestor) committeeLookup(ctx context.Context) (map[string]int64, error) {
	committees, err := in.store.ListCommittees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list committees: %w", err)
	}

	lookup := make(map[string]int64, len(committees))
	for _, c := range committees {
		if c.ParentID != nil {
			continue
		}
		lookup[strings.ToUpper(strings.TrimSpace(c.Number))] = c.ID
	}
	return lookup, nil
}

func (in *Ingestor) previousHash(key string) string {
	data, ok := in.cache.Get(key)
	if !ok {
		return ""
	}
	var hash string
	if err := json.Unmarshal(data, &hash); err != nil {
		return ""
	}
	return hash
}

func (in *Ingestor) saveHash(key, hash string) error {
	data, err := json.Marshal(hash)
	if err != nil {
		return err
	}
	return in.cache.Set(key, data, 0)
}

func normalizeVoteID(id string) string {
	return strings.TrimSpace(id)
}
