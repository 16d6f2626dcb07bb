package refresh

// State is the pull-to-refresh state of a Controller.
type State int

const (
	StatePulling        State = iota // initial; surface at rest or pulled less than the threshold
	StateReadyToRelease              // pulled past the threshold while still dragging
	StateRefreshing                  // action running, affordance pinned open
)

func (s State) String() string {
	switch s {
	case StatePulling:
		return "pulling"
	case StateReadyToRelease:
		return "ready-to-release"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}
