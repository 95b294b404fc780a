package scanner

import "fmt"

type EventKind int

const (
	// A directory could not be listed and was treated as empty.
	EventWalkError EventKind = iota
	// A node_modules directory could not be measured at all.
	EventProbeError
	// A directory was measured but some of its entries were unreadable.
	EventProbePartial
	// The run reached Finished.
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventWalkError:
		return "walk-error"
	case EventProbeError:
		return "probe-error"
	case EventProbePartial:
		return "probe-partial"
	case EventFinished:
		return "finished"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event reports something the presentation layer may want to surface.
type Event struct {
	Kind   EventKind
	Path   string
	Handle Handle // valid for probe events
	Err    error
	// Entries left unreadable, for EventProbePartial.
	Unreadable int64
}
