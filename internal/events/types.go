package events

// Event enumerates the topics flowing between the controller and the
// dashboard layer.
type Event string

const (
	// EventStatus carries the latest status.Snapshot after each cycle.
	EventStatus Event = "status"
	// EventCycle carries the audit record emitted at the end of a cycle.
	EventCycle Event = "cycle"
	// EventCommand announces a forced command accepted by the API.
	EventCommand Event = "command"
)
