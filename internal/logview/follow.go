package logview

// FollowState is the auto-follow policy of the log view.
type FollowState int

const (
	Following FollowState = iota
	Detached
)

func (s FollowState) String() string {
	switch s {
	case Following:
		return "following"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// DefaultProximityThreshold is the distance from the bottom edge, in the
// caller's scroll units, inside which the view counts as "at the bottom".
const DefaultProximityThreshold = 100

// FollowTracker turns scroll positions into a FollowState. It never fetches
// data; the tail poller only consults it when deciding whether to scroll.
type FollowTracker struct {
	// Threshold is the proximity to the bottom edge; zero uses
	// DefaultProximityThreshold.
	Threshold int
	// Sticky keeps the tracker Detached until JumpToBottom, even when the user
	// scrolls back near the bottom by hand.
	Sticky bool

	state FollowState
}

// State returns the current follow state.
func (t *FollowTracker) State() FollowState { return t.state }

// OnScroll records a scroll event.
func (t *FollowTracker) OnScroll(scrollHeight, scrollTop, clientHeight int) FollowState {
	threshold := t.Threshold
	if threshold <= 0 {
		threshold = DefaultProximityThreshold
	}
	distance := scrollHeight - scrollTop - clientHeight
	switch {
	case distance >= threshold:
		t.state = Detached
	case !t.Sticky:
		t.state = Following
	}
	return t.state
}

// JumpToBottom handles an explicit "scroll to bottom" action.
func (t *FollowTracker) JumpToBottom() {
	t.state = Following
}

func (t *FollowTracker) reset() {
	t.state = Following
}
