package session

// State is the controller's lifecycle position. The only legal moves are
// Uninitialized → Initializing → {Authenticated, Anonymous}, then
// Authenticated ⇄ Anonymous via login/signup/logout. Silent
// re-validation keeps Authenticated in place.
type State string

const (
	// StateUninitialized is the zero state before Initialize runs.
	StateUninitialized State = "uninitialized"
	// StateInitializing covers the whole restore/re-validate sequence.
	StateInitializing State = "initializing"
	// StateAuthenticated means a current user is present.
	StateAuthenticated State = "authenticated"
	// StateAnonymous means no current user is present.
	StateAnonymous State = "anonymous"
)

var stateTransitions = map[State][]State{
	StateUninitialized: {StateInitializing},
	StateInitializing:  {StateAuthenticated, StateAnonymous},
	StateAuthenticated: {StateAuthenticated, StateAnonymous},
	StateAnonymous:     {StateAuthenticated, StateAnonymous},
}

// CanTransition reports whether moving from one state to another is
// allowed.
func CanTransition(from, to State) bool {
	for _, allowed := range stateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
