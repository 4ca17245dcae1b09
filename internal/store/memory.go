package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/billtrack/internal/model"
)

type statusKey struct {
	billID    int64
	sessionID int64
	status    string
	date      int64
}

type voteKey struct {
	lisID     string
	sessionID int64
}

type responseKey struct {
	representativeID int64
	voteID           int64
}

// Memory is an in-process store with the same upsert semantics as Postgres
type Memory struct {
	mu sync.RWMutex

	nextID int64

	bills           map[int64]model.Bill
	representatives map[int64]model.Representative
	committees      map[int64]model.Committee

	statuses    map[int64]model.BillStatusEvent
	statusIndex map[statusKey]int64
	votes       map[int64]model.Vote
	voteIndex   map[voteKey]int64
	responses   map[responseKey]model.RepresentativeVote
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		bills:           make(map[int64]model.Bill),
		representatives: make(map[int64]model.Representative),
		committees:      make(map[int64]model.Committee),
		statuses:        make(map[int64]model.BillStatusEvent),
		statusIndex:     make(map[statusKey]int64),
		votes:           make(map[int64]model.Vote),
		voteIndex:       make(map[voteKey]int64),
		responses:       make(map[responseKey]model.RepresentativeVote),
	}
}

func (s *Memory) id(given int64) int64 {
	if given > 0 {
		if given > s.nextID {
			s.nextID = given
		}
		return given
	}
	s.nextID++
	return s.nextID
}

// AddBill seeds a bill and returns its id
func (s *Memory) AddBill(b model.Bill) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id(b.ID)
	s.bills[b.ID] = b
	return b.ID
}

// AddRepresentative seeds a legislator and returns its id
func (s *Memory) AddRepresentative(r model.Representative) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id(r.ID)
	s.representatives[r.ID] = r
	return r.ID
}

// AddCommittee seeds a committee and returns its id
func (s *Memory) AddCommittee(c model.Committee) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id(c.ID)
	s.committees[c.ID] = c
	return c.ID
}

// PutVote stores a vote row as-is, bypassing upsert rules
func (s *Memory) PutVote(v model.Vote) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.id(v.ID)
	s.votes[v.ID] = v
	s.voteIndex[voteKey{v.LISID, v.SessionID}] = v.ID
	return v.ID
}

func (s *Memory) UpsertBillStatus(_ context.Context, event model.BillStatusEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := statusKey{event.BillID, event.SessionID, event.Status, event.Date.UTC().UnixNano()}
	if id, ok := s.statusIndex[key]; ok {
		existing := s.statuses[id]
		if existing.LISVoteID == "" && event.LISVoteID != "" {
			existing.LISVoteID = event.LISVoteID
			s.statuses[id] = existing
			return true, nil
		}
		return false, nil
	}

	event.ID = s.id(0)
	s.statuses[event.ID] = event
	s.statusIndex[key] = event.ID
	return true, nil
}

func (s *Memory) ListBills(_ context.Context, sessionID int64) ([]model.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bills []model.Bill
	for _, b := range s.bills {
		if b.SessionID == sessionID {
			bills = append(bills, b)
		}
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].ID < bills[j].ID })
	return bills, nil
}

func (s *Memory) ListBillStatuses(_ context.Context, billID, sessionID int64) ([]model.BillStatusEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []model.BillStatusEvent
	for _, e := range s.statuses {
		if e.BillID == billID && e.SessionID == sessionID {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (s *Memory) UpdateBillStatusChamber(_ context.Context, id int64, chamber model.Chamber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.statuses[id]
	if !ok {
		return ErrNotFound
	}
	e.Chamber = chamber
	s.statuses[id] = e
	return nil
}

func (s *Memory) ReferencedVoteIDs(_ context.Context, sessionID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, e := range s.statuses {
		if e.SessionID != sessionID || e.LISVoteID == "" {
			continue
		}
		if _, ok := seen[e.LISVoteID]; ok {
			continue
		}
		seen[e.LISVoteID] = struct{}{}
		ids = append(ids, e.LISVoteID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Memory) ExistingVoteIDs(_ context.Context, sessionID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, v := range s.votes {
		if v.SessionID == sessionID {
			ids = append(ids, v.LISID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Memory) ListCommittees(_ context.Context) ([]model.Committee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	committees := make([]model.Committee, 0, len(s.committees))
	for _, c := range s.committees {
		committees = append(committees, c)
	}
	sort.Slice(committees, func(i, j int) bool { return committees[i].ID < committees[j].ID })
	return committees, nil
}

func (s *Memory) FindRepresentative(_ context.Context, memberNumber string, chamber model.Chamber) (model.Representative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memberNumber = strings.TrimSpace(memberNumber)
	for _, r := range s.representatives {
		if r.MemberNumber == memberNumber && r.Chamber == chamber {
			return r, nil
		}
	}
	return model.Representative{}, ErrNotFound
}

func (s *Memory) UpsertVote(_ context.Context, vote model.Vote) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey{vote.LISID, vote.SessionID}
	if id, ok := s.voteIndex[key]; ok {
		existing := s.votes[id]
		existing.Chamber = vote.Chamber
		existing.Tally = vote.Tally
		existing.Total = vote.Total
		existing.Outcome = vote.Outcome
		existing.CommitteeID = vote.CommitteeID
		if vote.Date != nil {
			existing.Date = vote.Date
		}
		s.votes[id] = existing
		return id, nil
	}

	vote.ID = s.id(0)
	vote.Partisanship = nil
	s.votes[vote.ID] = vote
	s.voteIndex[key] = vote.ID
	return vote.ID, nil
}

func (s *Memory) UpsertRepresentativeVote(_ context.Context, rv model.RepresentativeVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.representatives[rv.RepresentativeID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.votes[rv.VoteID]; !ok {
		return ErrNotFound
	}

	key := responseKey{rv.RepresentativeID, rv.VoteID}
	if existing, ok := s.responses[key]; ok {
		existing.Response = rv.Response
		s.responses[key] = existing
		return nil
	}
	s.responses[key] = rv
	return nil
}

func (s *Memory) ClearOversizedCommitteeVotes(_ context.Context, sessionID int64, chamber model.Chamber, ceiling int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, v := range s.votes {
		if v.SessionID == sessionID && v.Chamber == chamber && v.CommitteeID != nil && v.Total > ceiling {
			v.CommitteeID = nil
			s.votes[id] = v
			n++
		}
	}
	return n, nil
}

func (s *Memory) BackfillVoteDates(_ context.Context, sessionID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	earliest := make(map[string]time.Time)
	for _, e := range s.statuses {
		if e.SessionID != sessionID || e.LISVoteID == "" {
			continue
		}
		if cur, ok := earliest[e.LISVoteID]; !ok || e.Date.Before(cur) {
			earliest[e.LISVoteID] = e.Date
		}
	}

	var n int64
	for id, v := range s.votes {
		if v.SessionID != sessionID || v.Date != nil {
			continue
		}
		if date, ok := earliest[v.LISID]; ok {
			v.Date = &date
			s.votes[id] = v
			n++
		}
	}
	return n, nil
}

func (s *Memory) StreamPartyResponseCounts(_ context.Context, sessionID int64, fn func(model.PartyResponseCount) error) error {
	s.mu.RLock()
	type groupKey struct {
		voteID   int64
		party    string
		response string
	}
	counts := make(map[groupKey]int)
	for key, rv := range s.responses {
		v, ok := s.votes[key.voteID]
		if !ok || v.SessionID != sessionID || v.Partisanship != nil {
			continue
		}
		rep := s.representatives[key.representativeID]
		if rep.Party != "D" && rep.Party != "R" {
			continue
		}
		if rv.Response != "Y" && rv.Response != "N" {
			continue
		}
		counts[groupKey{key.voteID, rep.Party, rv.Response}]++
	}
	s.mu.RUnlock()

	rows := make([]model.PartyResponseCount, 0, len(counts))
	for k, c := range counts {
		rows = append(rows, model.PartyResponseCount{VoteID: k.voteID, Party: k.party, Response: k.response, Count: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VoteID != rows[j].VoteID {
			return rows[i].VoteID < rows[j].VoteID
		}
		if rows[i].Party != rows[j].Party {
			return rows[i].Party < rows[j].Party
		}
		return rows[i].Response < rows[j].Response
	})

	for _, row := range rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Memory) SetPartisanship(_ context.Context, voteID int64, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.votes[voteID]
	if !ok {
		return ErrNotFound
	}
	if v.Partisanship == nil {
		v.Partisanship = &score
		s.votes[voteID] = v
	}
	return nil
}

// BillStatuses returns every stored status row ordered by id
func (s *Memory) BillStatuses() []model.BillStatusEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.BillStatusEvent, 0, len(s.statuses))
	for _, e := range s.statuses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Votes returns every stored vote ordered by id
func (s *Memory) Votes() []model.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Vote, 0, len(s.votes))
	for _, v := range s.votes {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// VoteByLISID returns the stored vote with the given upstream id
func (s *Memory) VoteByLISID(lisID string, sessionID int64) (model.Vote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.voteIndex[voteKey{lisID, sessionID}]
	if !ok {
		return model.Vote{}, false
	}
	return s.votes[id], true
}

// RepresentativeVotes returns every stored response
func (s *Memory) RepresentativeVotes() []model.RepresentativeVote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RepresentativeVote, 0, len(s.responses))
	for _, rv := range s.responses {
		out = append(out, rv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VoteID != out[j].VoteID {
			return out[i].VoteID < out[j].VoteID
		}
		return out[i].RepresentativeID < out[j].RepresentativeID
	})
	return out
}
