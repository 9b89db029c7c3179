package domain

// SendOutcome records the result of exactly one send attempt. It is created
// once per recipient and never mutated afterwards.
type SendOutcome struct {
	Phone    string
	Success  bool
	Error    string
	MediaURL string
	Caption  string
}

// BatchResult aggregates the outcomes of one batch call in input order.
// Total == Success + Failed == len(Outcomes) holds at all times; use Add to
// keep the counters consistent.
type BatchResult struct {
	Total    int
	Success  int
	Failed   int
	Outcomes []SendOutcome
}

func (b *BatchResult) Add(outcome SendOutcome) {
	b.Total++
	if outcome.Success {
		b.Success++
	} else {
		b.Failed++
	}
	b.Outcomes = append(b.Outcomes, outcome)
}

// FailedOutcomes returns the failed subset in input order, for the caller's
// partial-retry breakdown.
func (b *BatchResult) FailedOutcomes() []SendOutcome {
	failed := make([]SendOutcome, 0, b.Failed)
	for _, outcome := range b.Outcomes {
		if !outcome.Success {
			failed = append(failed, outcome)
		}
	}
	return failed
}
