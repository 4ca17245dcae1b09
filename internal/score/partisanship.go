package score

import (
	"context"
	"fmt"
	"math"

	"github.com/ppiankov/billtrack/internal/model"
)

// PartyCounts holds the yes/no counts of the two major parties on one vote
type PartyCounts struct {
	DemYes int
	DemNo  int
	RepYes int
	RepNo  int
}

// Add accumulates one aggregate row. Parties other than D and R and
// responses other than Y and N are ignored.
func (pc *PartyCounts) Add(party, response string, count int) {
	switch {
	case party == "D" && response == "Y":
		pc.DemYes += count
	case party == "D" && response == "N":
		pc.DemNo += count
	case party == "R" && response == "Y":
		pc.RepYes += count
	case party == "R" && response == "N":
		pc.RepNo += count
	}
}

// PartyRating rates how unified one party was: 1 when unanimous, 0 when
// evenly split, otherwise the minority share.
func PartyRating(yes, no int) float64 {
	switch {
	case yes == no:
		return 0
	case yes == 0 || no == 0:
		return 1
	default:
		return round4(float64(min(yes, no)) / float64(yes+no))
	}
}

// Partisanship scores a vote from 0 to 1. When neither party cast a no, or
// neither cast a yes, the parties did not oppose each other and the score
// is 0 regardless of the per-party ratings.
func Partisanship(pc PartyCounts) float64 {
	if (pc.DemNo == 0 && pc.RepNo == 0) || (pc.DemYes == 0 && pc.RepYes == 0) {
		return 0
	}
	return round4((PartyRating(pc.DemYes, pc.DemNo) + PartyRating(pc.RepYes, pc.RepNo)) / 2)
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// Calculator is a streaming group-by over rows sorted by vote id. Each
// vote's score is written as soon as the next vote id (or Close) is seen.
type Calculator struct {
	write func(voteID int64, score float64) error

	current int64
	counts  PartyCounts
	open    bool
	scored  int
}

// NewCalculator creates a Calculator that hands finished scores to write
func NewCalculator(write func(voteID int64, score float64) error) *Calculator {
	return &Calculator{write: write}
}

// Feed consumes one row
func (c *Calculator) Feed(row model.PartyResponseCount) error {
	if c.open && row.VoteID != c.current {
		if row.VoteID < c.current {
			return fmt.Errorf("rows out of order: vote %d after %d", row.VoteID, c.current)
		}
		if err := c.flush(); err != nil {
			return err
		}
	}

	if !c.open {
		c.current = row.VoteID
		c.counts = PartyCounts{}
		c.open = true
	}
	c.counts.Add(row.Party, row.Response, row.Count)
	return nil
}

// Close finalizes the last vote
func (c *Calculator) Close() error {
	if !c.open {
		return nil
	}
	return c.flush()
}

// Scored returns the number of votes written so far
func (c *Calculator) Scored() int {
	return c.scored
}

func (c *Calculator) flush() error {
	c.open = false
	if err := c.write(c.current, Partisanship(c.counts)); err != nil {
		return fmt.Errorf("write partisanship for vote %d: %w", c.current, err)
	}
	c.scored++
	return nil
}

// Source streams per-vote party response counts for unscored votes
type Source interface {
	StreamPartyResponseCounts(ctx context.Context, sessionID int64, fn func(model.PartyResponseCount) error) error
}

// Sink stores a vote's score
type Sink interface {
	SetPartisanship(ctx context.Context, voteID int64, score float64) error
}

// Calculate scores every unscored vote in the session and returns how many
// were written.
func Calculate(ctx context.Context, src Source, sink Sink, sessionID int64) (int, error) {
	calc := NewCalculator(func(voteID int64, score float64) error {
		return sink.SetPartisanship(ctx, voteID, score)
	})

	if err := src.StreamPartyResponseCounts(ctx, sessionID, calc.Feed); err != nil {
		return calc.Scored(), err
	}
	if err := calc.Close(); err != nil {
		return calc.Scored(), err
	}
	return calc.Scored(), nil
}
