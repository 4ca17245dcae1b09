package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/billtrack/internal/cache"
	"github.com/ppiankov/billtrack/internal/lis"
	"github.com/ppiankov/billtrack/internal/metrics"
	"github.com/ppiankov/billtrack/internal/model"
	"github.com/ppiankov/billtrack/internal/store"
	"github.com/ppiankov/billtrack/internal/worker"
)

const (
	legislationList = `{"Legislations":[
		{"LegislationID":101,"LegislationNumber":"HB1","LegislationStatus":"Signed by Governor"},
		{"LegislationID":102,"LegislationNumber":"HR7","LegislationStatus":"Agreed to by House"},
		{"LegislationID":103,"LegislationNumber":"SB9","LegislationStatus":"In Committee"}
	]}`

	hb1History = `{"LegislationEvents":[
		{"ChamberCode":"H","EventDate":"2025-01-08T09:00:00","Description":"Prefiled and ordered printed"},
		{"ChamberCode":"H","EventDate":"2025-01-20T12:00:00","Description":"Passed House (60-Y 38-N)","VoteID":"H0120V0003"},
		{"ChamberCode":"H","EventDate":"2025-01-20T12:00:00","Description":"Passed House (60-Y 38-N)","VoteID":"H0120V0003"},
		{"ChamberCode":"H","EventDate":"2025-02-03T10:00:00","Description":"Referred to Committee on Finance"},
		{"ChamberCode":"S","EventDate":"2025-02-05T10:00:00","Description":"Reported from Finance (10-Y 5-N)","VoteID":"S0205V0001"},
		{"ChamberCode":"S","EventDate":"2025-02-10T14:00:00","Description":"Passed Senate (21-Y 19-N)","VoteID":"S0210V0002"},
		{"ChamberCode":"H","EventDate":"2025-03-01T09:00:00","Description":"Signed by Governor"}
	]}`

	hr7History = `{"LegislationEvents":[
		{"ChamberCode":"H","EventDate":"2025-01-09T09:00:00","Description":"Agreed to by House"}
	]}`

	voteList = `{"Votes":[
		{"VoteID":"H0120V0003","ChamberCode":"H","VoteTally":"3-Y 2-N",
		 "VoteMember":[{"MemberNumber":"H0001","ResponseCode":"Y"},{"MemberNumber":"H0002","ResponseCode":"Y"},{"MemberNumber":"H0003","ResponseCode":"N"}]},
		{"VoteID":"S0205V0001","ChamberCode":"S","CommitteeNumber":"S05","VoteTally":"10-Y 5-N",
		 "VoteMember":[{"MemberNumber":"S0001","ResponseCode":"Y"},{"MemberNumber":"S0002","ResponseCode":"N"}]},
		{"VoteID":"S0210V0002","ChamberCode":"S","CommitteeNumber":"S05","VoteTally":"21-Y 19-N",
		 "VoteMember":[{"MemberNumber":"S0001","ResponseCode":"Y"},{"MemberNumber":"S0002","ResponseCode":"Y"}]}
	]}`
)

type fakeLIS struct {
	server   *httptest.Server
	list     string
	history  map[string]string
	fail     map[string]bool
	requests atomic.Int32
}

func newFakeLIS(t *testing.T) *fakeLIS {
	t.Helper()
	f := &fakeLIS{
		list:    legislationList,
		history: map[string]string{"101": hb1History, "102": hr7History},
		fail:    map[string]bool{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		switch r.URL.Path {
		case "/Legislation/api/GetLegislationListAsync":
			_, _ = fmt.Fprint(w, f.list)
		case "/LegislationEvent/api/GetLegislationEventHistoryAsync":
			id := r.URL.Query().Get("legislationID")
			if f.fail[id] {
				http.Error(w, "upstream down", http.StatusBadGateway)
				return
			}
			body, ok := f.history[id]
			if !ok {
				body = `{"LegislationEvents":[]}`
			}
			_, _ = fmt.Fprint(w, body)
		case "/Vote/api/GetVoteAsync":
			_, _ = fmt.Fprint(w, voteList)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Session = model.SessionConfig{ID: 7, Code: "20251"}
	cfg.Ingest.MaxConsecutiveFailures = 2
	return cfg
}

func seed(mem *store.Memory) {
	mem.AddBill(model.Bill{Number: "hb1", SessionID: 7, LISID: "101"})
	mem.AddBill(model.Bill{Number: "hr7", SessionID: 7})

	mem.AddRepresentative(model.Representative{MemberNumber: "H0001", Chamber: model.ChamberHouse, Party: "D"})
	mem.AddRepresentative(model.Representative{MemberNumber: "H0002", Chamber: model.ChamberHouse, Party: "D"})
	mem.AddRepresentative(model.Representative{MemberNumber: "H0003", Chamber: model.ChamberHouse, Party: "R"})
	mem.AddRepresentative(model.Representative{MemberNumber: "S0001", Chamber: model.ChamberSenate, Party: "D"})
	mem.AddRepresentative(model.Representative{MemberNumber: "S0002", Chamber: model.ChamberSenate, Party: "R"})

	mem.AddCommittee(model.Committee{Number: "S05", Chamber: model.ChamberSenate})
}

func newPipeline(t *testing.T, f *fakeLIS, mem *store.Memory, c cache.Cache) *Pipeline {
	t.Helper()
	client := lis.NewClient(lis.Options{
		BaseURL: f.server.URL,
		Timeout: 5 * time.Second,
		Limiter: worker.NewLimiter(0, 1, 0),
	})
	return New(testConfig(), mem, client, c, metrics.NewRun("test"), nil)
}

func TestRunHistory(t *testing.T) {
	ctx := context.Background()
	f := newFakeLIS(t)
	mem := store.NewMemory()
	seed(mem)
	p := newPipeline(t, f, mem, cache.NewDiskCache(t.TempDir(), 0))

	res, err := p.RunHistory(ctx, HistoryOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if res.Listed != 3 || res.Changed != 3 || res.UnknownBills != 1 {
		t.Errorf("unexpected listing counts: %+v", res)
	}
	if res.Fetch.Succeeded != 2 || res.Stored != 7 {
		t.Errorf("unexpected fetch counts: %+v", res)
	}
	if res.Attribution.Bills != 1 || res.Attribution.Skipped != 1 {
		t.Errorf("unexpected attribution counts: %+v", res.Attribution)
	}

	rows, _ := mem.ListBillStatuses(ctx, 1, 7)
	want := []model.Chamber{
		model.ChamberHouse, model.ChamberHouse,
		model.ChamberSenate, model.ChamberSenate, model.ChamberSenate,
		model.ChamberHouse,
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows for hb1, got %d", len(want), len(rows))
	}
	for i, row := range rows {
		if row.Chamber != want[i] {
			t.Errorf("row %d (%q) = %s, want %s", i, row.Status, row.Chamber, want[i])
		}
	}

	again, err := p.RunHistory(ctx, HistoryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if again.Changed != 0 || again.Fetch.Processed != 0 {
		t.Errorf("expected no work on unchanged list, got %+v", again)
	}

	full, err := p.RunHistory(ctx, HistoryOptions{Full: true})
	if err != nil {
		t.Fatal(err)
	}
	if full.Changed != 3 || full.Stored != 0 || full.Attribution.Corrected != 0 {
		t.Errorf("expected idempotent full run, got %+v", full)
	}
}

func TestRunHistory_RegisterBills(t *testing.T) {
	f := newFakeLIS(t)
	mem := store.NewMemory()
	p := newPipeline(t, f, mem, cache.NewMemoryCache(0, 0))

	res, err := p.RunHistory(context.Background(), HistoryOptions{RegisterBills: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.UnknownBills != 0 || res.Fetch.Succeeded != 3 {
		t.Errorf("expected every listed bill registered, got %+v", res)
	}

	bills, _ := mem.ListBills(context.Background(), 7)
	if len(bills) != 3 {
		t.Errorf("expected 3 registered bills, got %d", len(bills))
	}
}

func TestRunHistory_FailureCeiling(t *testing.T) {
	f := newFakeLIS(t)
	f.fail["101"] = true
	f.fail["102"] = true
	mem := store.NewMemory()
	seed(mem)
	mem.AddBill(model.Bill{Number: "sb9", SessionID: 7})

	res, err := newPipeline(t, f, mem, cache.NewMemoryCache(0, 0)).RunHistory(context.Background(), HistoryOptions{})
	if !errors.Is(err, worker.ErrTooManyFailures) {
		t.Fatalf("expected ErrTooManyFailures, got %v", err)
	}
	if !res.Fetch.Aborted || res.Fetch.Processed != 2 {
		t.Errorf("expected loop aborted after 2 items, got %+v", res.Fetch)
	}
}

func TestRunVotes(t *testing.T) {
	ctx := context.Background()
	f := newFakeLIS(t)
	mem := store.NewMemory()
	seed(mem)
	p := newPipeline(t, f, mem, cache.NewMemoryCache(0, 0))

	if _, err := p.RunHistory(ctx, HistoryOptions{}); err != nil {
		t.Fatal(err)
	}

	res, err := p.RunVotes(ctx, VoteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Ingest.Candidates != 3 || res.Ingest.Stored != 3 || res.Ingest.Responses != 7 {
		t.Errorf("unexpected ingest counts: %+v", res.Ingest)
	}
	if res.Ingest.CommitteesCleared != 0 {
		t.Errorf("expected floor-sized senate vote never attributed, got %d cleared", res.Ingest.CommitteesCleared)
	}
	if res.Scored != 3 {
		t.Errorf("expected 3 votes scored, got %d", res.Scored)
	}

	committeeVote, _ := mem.VoteByLISID("S0205V0001", 7)
	if committeeVote.CommitteeID == nil {
		t.Error("expected committee vote attributed")
	}
	floorVote, _ := mem.VoteByLISID("S0210V0002", 7)
	if floorVote.CommitteeID != nil {
		t.Error("expected senate floor vote of 40 left without committee")
	}
	if floorVote.Date == nil || !floorVote.Date.Equal(time.Date(2025, 2, 10, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("expected date from status row, got %v", floorVote.Date)
	}

	house, _ := mem.VoteByLISID("H0120V0003", 7)
	if house.Partisanship == nil || *house.Partisanship != 1 {
		t.Errorf("expected party-line house vote scored 1, got %v", house.Partisanship)
	}
	if floorVote.Partisanship == nil || *floorVote.Partisanship != 0 {
		t.Errorf("expected bipartisan yes vote scored 0, got %v", floorVote.Partisanship)
	}

	again, err := p.RunVotes(ctx, VoteOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if again.Ingest.Candidates != 0 || again.Ingest.Fetched || again.Scored != 0 {
		t.Errorf("expected nothing left to do, got %+v", again)
	}
}

func TestRunAttribution(t *testing.T) {
	ctx := context.Background()
	f := newFakeLIS(t)
	mem := store.NewMemory()
	seed(mem)
	p := newPipeline(t, f, mem, cache.NewMemoryCache(0, 0))

	if _, err := p.RunHistory(ctx, HistoryOptions{}); err != nil {
		t.Fatal(err)
	}

	res, err := p.RunAttribution(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Bills != 1 || res.Skipped != 1 || res.Corrected != 0 {
		t.Errorf("expected maintenance pass to find nothing to correct, got %+v", res)
	}
}
