package enums

import "fmt"

// PickupType classifies why a stop exists on a job.
type PickupType string

const (
	PickupTypeRoutine    PickupType = "routine"
	PickupTypeSpecial    PickupType = "special"
	PickupTypeMissedRedo PickupType = "missed_redo"
)

var validPickupTypes = []PickupType{
	PickupTypeRoutine,
	PickupTypeSpecial,
	PickupTypeMissedRedo,
}

// String implements fmt.Stringer.
func (p PickupType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PickupType.
func (p PickupType) IsValid() bool {
	for _, candidate := range validPickupTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePickupType converts raw input into a PickupType.
func ParsePickupType(value string) (PickupType, error) {
	for _, candidate := range validPickupTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pickup type %q", value)
}
