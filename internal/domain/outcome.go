package domain

// Outcome classifies a single document write.
type Outcome int

const (
	// OutcomeInserted means the document was created.
	OutcomeInserted Outcome = iota
	// OutcomeDuplicateIgnored means a document with the same ID already existed.
	OutcomeDuplicateIgnored
	// OutcomeError means the write failed for any other reason.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicateIgnored:
		return "duplicate"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}
