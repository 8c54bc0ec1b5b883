package enums

import "fmt"

// JobStatus tracks the lifecycle of a dispatchable route job.
type JobStatus string

const (
	JobStatusDraft      JobStatus = "draft"
	JobStatusOpen       JobStatus = "open"
	JobStatusBidding    JobStatus = "bidding"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

var validJobStatuses = []JobStatus{
	JobStatusDraft,
	JobStatusOpen,
	JobStatusBidding,
	JobStatusAssigned,
	JobStatusInProgress,
	JobStatusCompleted,
	JobStatusCancelled,
}

// String implements fmt.Stringer.
func (j JobStatus) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JobStatus.
func (j JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == j {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a job can never leave this status.
func (j JobStatus) IsTerminal() bool {
	return j == JobStatusCompleted || j == JobStatusCancelled
}

// IsBiddable reports whether drivers may still place bids. Open and bidding
// are one superstate: the first recorded bid flips open to bidding, which is
// a data annotation, not a lifecycle transition.
func (j JobStatus) IsBiddable() bool {
	return j == JobStatusOpen || j == JobStatusBidding
}

// ParseJobStatus converts raw input into a JobStatus.
func ParseJobStatus(value string) (JobStatus, error) {
	for _, candidate := range validJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}
