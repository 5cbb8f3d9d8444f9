package reconciler

// State is a step of per-document processing.
//
//	Resolving -> PassThrough
//	Resolving -> Merging -> TitleScan -> Validating -> Cleanup -> Saved
//
// Resolving, TitleScan and Validating fail to Error.
type State string

const (
	StateResolving   State = "resolving"
	StatePassThrough State = "pass-through"
	StateMerging     State = "merging"
	StateTitleScan   State = "title-scan"
	StateValidating  State = "validating"
	StateCleanup     State = "cleanup"
	StateSaved       State = "saved"
	StateError       State = "error"
)

// String returns the string representation of a state.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether processing stops in this state.
func (s State) IsTerminal() bool {
	switch s {
	case StatePassThrough, StateSaved, StateError:
		return true
	default:
		return false
	}
}
