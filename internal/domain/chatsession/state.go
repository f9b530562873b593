package chatsession

type State int

const (
	StateEmpty State = iota
	StateCreating
	StateStreaming
	StateIdle
	// StateLoading covers the fetch of a conversation selected with Switch.
	StateLoading
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateCreating:
		return "creating"
	case StateStreaming:
		return "streaming"
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	}
	return "unknown"
}

// Busy reports whether a turn is in flight.
func (s State) Busy() bool {
	return s == StateCreating || s == StateStreaming || s == StateLoading
}
