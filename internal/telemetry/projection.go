package telemetry

import (
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

// Snapshot is a point-in-time copy of the derived status maps. Driver status
// is keyed by the provider's driver ref, stop status by the provider's stop
// ref; stop values mirror the raw event kind names.
type Snapshot struct {
	Drivers map[string]enums.DriverRouteStatus `json:"drivers"`
	Stops   map[string]string                  `json:"stops"`
}

// Projection derives driver and stop status from the event feed. It is a
// replayable cache: applying the same event twice yields the same state, and
// the whole projection can be rebuilt from empty by replaying history.
// Projection itself is not goroutine safe; the ingestor is its only writer.
type Projection struct {
	drivers map[string]enums.DriverRouteStatus
	stops   map[string]string
}

// NewProjection returns an empty projection.
func NewProjection() *Projection {
	return &Projection{
		drivers: make(map[string]enums.DriverRouteStatus),
		stops:   make(map[string]string),
	}
}

// Apply folds one event into the projection.
//
// Driver rules: start_route/on_duty always move the driver to in_progress,
// including away from completed (an explicit restart). end_route/off_duty
// complete the route day. Per-stop events imply in_progress only while the
// driver is not already completed; completion is sticky against stray
// in-flight telemetry.
//
// Stop rule: the latest event always wins, mirroring the raw kind name. A
// stop's terminal outcome can legitimately be corrected by a retry event.
func (p *Projection) Apply(event routing.DriverEvent) {
	kind, err := enums.ParseDriverEventKind(event.Kind)
	if err != nil {
		return
	}

	if event.DriverRef != "" {
		switch kind {
		case enums.DriverEventStartRoute, enums.DriverEventOnDuty:
			p.drivers[event.DriverRef] = enums.DriverRouteInProgress
		case enums.DriverEventEndRoute, enums.DriverEventOffDuty:
			p.drivers[event.DriverRef] = enums.DriverRouteCompleted
		case enums.DriverEventStartService, enums.DriverEventSuccess,
			enums.DriverEventFailed, enums.DriverEventRejected:
			if p.drivers[event.DriverRef] != enums.DriverRouteCompleted {
				p.drivers[event.DriverRef] = enums.DriverRouteInProgress
			}
		}
	}

	if event.StopRef != "" {
		p.stops[event.StopRef] = string(kind)
	}
}

// DriverStatus returns the derived status for a driver ref, defaulting to
// not_started for drivers the feed has not mentioned.
func (p *Projection) DriverStatus(driverRef string) enums.DriverRouteStatus {
	if status, ok := p.drivers[driverRef]; ok {
		return status
	}
	return enums.DriverRouteNotStarted
}

// StopStatus returns the latest event kind seen for a stop ref, defaulting
// to "scheduled" for stops the feed has not mentioned.
func (p *Projection) StopStatus(stopRef string) string {
	if status, ok := p.stops[stopRef]; ok {
		return status
	}
	return "scheduled"
}

// Snapshot deep-copies the current maps so callers can read without racing
// the ingest loop.
func (p *Projection) Snapshot() Snapshot {
	snapshot := Snapshot{
		Drivers: make(map[string]enums.DriverRouteStatus, len(p.drivers)),
		Stops:   make(map[string]string, len(p.stops)),
	}
	for ref, status := range p.drivers {
		snapshot.Drivers[ref] = status
	}
	for ref, status := range p.stops {
		snapshot.Stops[ref] = status
	}
	return snapshot
}

// Reset drops all derived state, as after a process restart.
func (p *Projection) Reset() {
	p.drivers = make(map[string]enums.DriverRouteStatus)
	p.stops = make(map[string]string)
}
