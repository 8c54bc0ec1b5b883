package enums

import "fmt"

// JobType distinguishes the kinds of dispatchable work.
type JobType string

const (
	JobTypeDailyRoute    JobType = "daily_route"
	JobTypeBulkPickup    JobType = "bulk_pickup"
	JobTypeSpecialPickup JobType = "special_pickup"
)

var validJobTypes = []JobType{
	JobTypeDailyRoute,
	JobTypeBulkPickup,
	JobTypeSpecialPickup,
}

// String implements fmt.Stringer.
func (j JobType) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JobType.
func (j JobType) IsValid() bool {
	for _, candidate := range validJobTypes {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJobType converts raw input into a JobType.
func ParseJobType(value string) (JobType, error) {
	for _, candidate := range validJobTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job type %q", value)
}
