package votes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/billtrack/internal/model"
)

// Tally holds the yes/no/abstain counts of a roll call
type Tally struct {
	Yes     int
	No      int
	Abstain int
}

// ParseTally parses an upstream tally such as "36-Y 1-N 1-X". Codes that
// do not appear count as zero; pairs with other codes are ignored.
func ParseTally(raw string) (Tally, error) {
	var t Tally

	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' || r == ';' })
	if len(fields) == 0 {
		return t, fmt.Errorf("empty tally")
	}

	for _, field := range fields {
		count, code, ok := strings.Cut(field, "-")
		if !ok {
			return t, fmt.Errorf("malformed tally pair %q in %q", field, raw)
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 0 {
			return t, fmt.Errorf("bad count in tally pair %q", field)
		}

		switch strings.ToUpper(strings.TrimSpace(code)) {
		case "Y":
			t.Yes += n
		case "N":
			t.No += n
		case "X":
			t.Abstain += n
		}
	}

	return t, nil
}

func (t Tally) Total() int {
	return t.Yes + t.No + t.Abstain
}

// String is the canonical stored form: "Y-N", or "Y-N-X" when anyone abstained
func (t Tally) String() string {
	if t.Abstain > 0 {
		return fmt.Sprintf("%d-%d-%d", t.Yes, t.No, t.Abstain)
	}
	return fmt.Sprintf("%d-%d", t.Yes, t.No)
}

// Outcome is pass on a simple majority of those voting yes over no.
// Votes needing a supermajority (veto overrides, constitutional
// amendments) are not distinguished.
func (t Tally) Outcome() model.Outcome {
	if t.Yes > t.No {
		return model.OutcomePass
	}
	return model.OutcomeFail
}
