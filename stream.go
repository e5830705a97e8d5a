package ragchat

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving fragments.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

// Stream uses a pull-based iterator pattern over the text fragments of one
// turn's response. Cancellation flows through the context passed to
// Service.SubmitTurn().
//
// Next() returns the next text fragment. Fragments arrive in origin order,
// are never duplicated, and never split a multi-byte encoded character.
// Exactly one terminal result occurs: io.EOF for normal completion, or a
// non-EOF error. After a terminal result, Next() keeps returning it.
//
// State() returns the current StreamState. Close() releases the underlying
// transport resource and is safe to call after a terminal result.
type Stream interface {
	Next() (string, error)
	State() StreamState
	Close() error
}
