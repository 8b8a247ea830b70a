package models

// OutcomeStatus classifies the result of a single HTTP exchange.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeLocked
	OutcomeRateLimited
	OutcomeTransient
	OutcomeFatal
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeLocked:
		return "retryable-lock"
	case OutcomeRateLimited:
		return "retryable-rate-limited"
	case OutcomeTransient:
		return "retryable-transient"
	case OutcomeFatal:
		return "fatal"
	default:
		return ""
	}
}

// Retryable reports whether another attempt may succeed.
func (s OutcomeStatus) Retryable() bool {
	return s == OutcomeLocked || s == OutcomeRateLimited || s == OutcomeTransient
}

// RequestOutcome is the classification of one HTTP exchange.
type RequestOutcome struct {
	Status     OutcomeStatus
	StatusCode int
	LockReason string // set for OutcomeLocked
	Detail     string // diagnostic payload, usually a body excerpt
}

// ItemStatus is the final state of one planned item in a batch.
type ItemStatus string

const (
	ItemSucceeded ItemStatus = "succeeded"
	ItemSkipped   ItemStatus = "skipped"
	ItemFailed    ItemStatus = "failed"
)

// ItemOutcome records what happened to one planned operation.
type ItemOutcome struct {
	Label  string // human-readable operation, as shown in the preview
	ItemID int    // remote id when known
	Status ItemStatus
	Err    error
	URL    string // human-navigable link to the affected resource
}

// Detail returns the error text, or an empty string on success.
func (o ItemOutcome) Detail() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
