package enums

import "fmt"

// DriverEventKind is the event vocabulary of the external telemetry feed.
type DriverEventKind string

const (
	DriverEventStartRoute   DriverEventKind = "start_route"
	DriverEventEndRoute     DriverEventKind = "end_route"
	DriverEventOnDuty       DriverEventKind = "on_duty"
	DriverEventOffDuty      DriverEventKind = "off_duty"
	DriverEventStartService DriverEventKind = "start_service"
	DriverEventSuccess      DriverEventKind = "success"
	DriverEventFailed       DriverEventKind = "failed"
	DriverEventRejected     DriverEventKind = "rejected"
)

var validDriverEventKinds = []DriverEventKind{
	DriverEventStartRoute,
	DriverEventEndRoute,
	DriverEventOnDuty,
	DriverEventOffDuty,
	DriverEventStartService,
	DriverEventSuccess,
	DriverEventFailed,
	DriverEventRejected,
}

// String implements fmt.Stringer.
func (d DriverEventKind) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DriverEventKind.
func (d DriverEventKind) IsValid() bool {
	for _, candidate := range validDriverEventKinds {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDriverEventKind converts raw feed input into a DriverEventKind.
func ParseDriverEventKind(value string) (DriverEventKind, error) {
	for _, candidate := range validDriverEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid driver event kind %q", value)
}
