package domain

// Counters tracks per-run record accounting.
// Every field is monotonically non-decreasing within a run.
type Counters struct {
	Scraped  int `json:"scraped"`
	Inserted int `json:"inserted"`
	Ignored  int `json:"ignored"`
	Errors   int `json:"errors"`
}

// Record applies a single write outcome. Scraped is accounted separately
// because filtered records never reach the sink.
func (c Counters) Record(o Outcome) Counters {
	switch o {
	case OutcomeInserted:
		c.Inserted++
	case OutcomeDuplicateIgnored:
		c.Ignored++
	case OutcomeError:
		c.Errors++
	}
	return c
}

// Termination is the terminal state of a run.
type Termination string

const (
	// TerminationReached means the record cap was hit.
	TerminationReached Termination = "reached"
	// TerminationExhausted means the source reported no further pages.
	TerminationExhausted Termination = "exhausted"
	// TerminationEmptyPage means the source returned an empty page.
	TerminationEmptyPage Termination = "empty_page"
	// TerminationRetriesExhausted means bounded next-page retry gave up.
	TerminationRetriesExhausted Termination = "retries_exhausted"
	// TerminationCanceled means the run context was canceled.
	TerminationCanceled Termination = "canceled"
	// TerminationFailed means the initial fetch or provisioning failed.
	TerminationFailed Termination = "failed"
)
