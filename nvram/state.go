package nvram

// State is a step of a restore.
type State int

const (
	// StateConnected: the link is up and nothing has been written
	StateConnected State = iota

	// StateRestoringNetworkItems: writing "nwk" items
	StateRestoringNetworkItems

	// StateRestoringOsalItems: writing "osal" items
	StateRestoringOsalItems

	// StateResettingForApply: soft resetting so the new values take effect
	StateResettingForApply

	// StateDone: the radio has reset
	StateDone
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateRestoringNetworkItems:
		return "restoring network items"
	case StateRestoringOsalItems:
		return "restoring osal items"
	case StateResettingForApply:
		return "resetting for apply"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StateCallback observes state transitions.
type StateCallback func(State)
