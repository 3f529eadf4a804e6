package transcode

// State is a position in the transcode state machine.
type State string

const (
	StatePending    State = "pending"
	StateEncoding   State = "encoding"
	StateTagging    State = "tagging"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StageLabel renders the state for the job stage column, appending the
// profile while encoding.
func StageLabel(s State, profile string) string {
	if s == StateEncoding && profile != "" {
		return string(s) + ":" + profile
	}
	return string(s)
}
