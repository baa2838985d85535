package pipeline

// State tracks which phase a run is in, mostly for logging.
type State int

const (
	StateInit State = iota
	StateListing
	StateIterating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateListing:
		return "listing"
	case StateIterating:
		return "iterating"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
