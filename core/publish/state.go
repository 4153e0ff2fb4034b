package publish

// State is a step of the one-shot publish workflow.
type State int

const (
	Unconfigured State = iota
	Configured
	Connecting
	Connected
	Publishing
	Published
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "Unconfigured"
	case Configured:
		return "Configured"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Publishing:
		return "Publishing"
	case Published:
		return "Published"
	case Closed:
		return "Closed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s == Closed || s == Failed }
