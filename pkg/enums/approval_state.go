package enums

import "fmt"

// ApprovalState tracks whether a property's pickup-day placement still needs
// a human decision.
type ApprovalState string

const (
	ApprovalStatePendingReview ApprovalState = "pending_review"
	ApprovalStateApproved      ApprovalState = "approved"
)

var validApprovalStates = []ApprovalState{
	ApprovalStatePendingReview,
	ApprovalStateApproved,
}

// String implements fmt.Stringer.
func (a ApprovalState) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ApprovalState.
func (a ApprovalState) IsValid() bool {
	for _, candidate := range validApprovalStates {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseApprovalState converts raw input into an ApprovalState.
func ParseApprovalState(value string) (ApprovalState, error) {
	for _, candidate := range validApprovalStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval state %q", value)
}
