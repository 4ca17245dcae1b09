package pipeline

import (
	"context"
	"fmt"

	"github.com/ppiankov/billtrack/internal/votes"
)

// VoteOptions configures a vote run
type VoteOptions struct {
	Force bool // ignore the vote-list content hash
}

// VoteResult summarizes a vote run
type VoteResult struct {
	Ingest votes.Result
	Scored int
}

// timedSource records upstream latency for vote list fetches
type timedSource struct {
	p *Pipeline
}

func (t timedSource) GetVotesRaw(ctx context.Context, sessionCode string) ([]byte, error) {
	stop := t.p.metrics.TimeUpstream("votes")
	defer stop()
	return t.p.upstream.GetVotesRaw(ctx, sessionCode)
}

// RunVotes ingests referenced votes and then scores their partisanship
func (p *Pipeline) RunVotes(ctx context.Context, opts VoteOptions) (VoteResult, error) {
	var res VoteResult

	ingestor := votes.NewIngestor(p.store, timedSource{p}, p.cache, p.cfg.Ingest.MaxConsecutiveFailures, p.logger)
	ingest, err := ingestor.Run(ctx, votes.Options{
		SessionID:         p.cfg.Session.ID,
		SessionCode:       p.cfg.Session.Code,
		CommitteeCeiling:  p.cfg.Votes.CommitteeCeiling,
		CorrectionCeiling: p.cfg.Votes.CorrectionCeiling,
		Force:             opts.Force,
	})
	res.Ingest = ingest

	p.metrics.Items("votes", "candidate", ingest.Candidates)
	p.metrics.Items("votes", "stored", ingest.Stored)
	p.metrics.Items("votes", "skipped", ingest.Skipped)
	p.metrics.Items("votes", "failed", ingest.Failed)
	p.metrics.Items("votes", "unknown_member", ingest.UnknownMembers)
	p.metrics.Rows("votes", int64(ingest.Stored))
	p.metrics.Rows("representatives_votes", int64(ingest.Responses))
	p.metrics.Rows("votes_committee_cleared", ingest.CommitteesCleared)
	p.metrics.Rows("votes_date_backfilled", ingest.DatesBackfilled)

	if err != nil {
		return res, fmt.Errorf("ingest votes: %w", err)
	}

	res.Scored, err = p.RunPartisanship(ctx)
	if err != nil {
		return res, fmt.Errorf("partisanship: %w", err)
	}
	return res, nil
}
