package subscription

// State is the lifecycle state of a screen's live query.
type State int

// Subscription states.
const (
	// Idle holds no query handle. It is the initial and the terminal state.
	Idle State = iota
	// Subscribing holds a handle that has not delivered its first batch.
	Subscribing
	// Active holds a handle that has delivered at least one batch.
	Active
	// Paused holds no handle while the screen is hidden; markers are kept.
	Paused
	// Failed holds no handle after a transport error; markers are kept.
	Failed
)

var stateNames = map[State]string{
	Idle:        "idle",
	Subscribing: "subscribing",
	Active:      "active",
	Paused:      "paused",
	Failed:      "failed",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// States lists every state, in declaration order.
func States() []State {
	return []State{Idle, Subscribing, Active, Paused, Failed}
}

// Holding reports whether the state owns a live query handle.
func (s State) Holding() bool {
	return s == Subscribing || s == Active
}

// Transition is one state change.
type Transition struct {
	From       State
	To         State
	Generation uint64
	Err        error // set when To is Failed
}
