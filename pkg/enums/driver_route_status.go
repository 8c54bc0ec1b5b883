package enums

// DriverRouteStatus is the derived route-day status for one driver. It is a
// projection value, not a stored lifecycle: the telemetry engine rebuilds it
// from the event feed.
type DriverRouteStatus string

const (
	DriverRouteNotStarted DriverRouteStatus = "not_started"
	DriverRouteInProgress DriverRouteStatus = "in_progress"
	DriverRouteCompleted  DriverRouteStatus = "completed"
)

// String implements fmt.Stringer.
func (d DriverRouteStatus) String() string {
	return string(d)
}
