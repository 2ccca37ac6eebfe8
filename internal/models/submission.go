package models

// SubmissionState defines the review state of a submission
type SubmissionState string

const (
	StateSubmitted SubmissionState = "submitted"
	StateAccepted  SubmissionState = "accepted"
	StateConfirmed SubmissionState = "confirmed"
	StateRejected  SubmissionState = "rejected"
	StateCanceled  SubmissionState = "canceled"
	StateWithdrawn SubmissionState = "withdrawn"
)

// Submission is a talk proposal, identified by its short public code
type Submission struct {
	Code     string          `json:"code"`
	EventID  string          `json:"event_id"`
	Title    string          `json:"title"`
	State    SubmissionState `json:"state"`
	Speakers []string        `json:"speakers,omitempty"`
}

// IsValidState reports whether s is a known submission state
func IsValidState(s SubmissionState) bool {
	switch s {
	case StateSubmitted, StateAccepted, StateConfirmed, StateRejected, StateCanceled, StateWithdrawn:
		return true
	default:
		return false
	}
}
