package turn

import "time"

// Handle identifies one in-flight turn. It is released exactly once: Done()
// closes either on successful finalize or on failure, and Err() reports the
// terminal outcome afterwards.
type Handle struct {
	ID             string
	ConversationID string
	StartedAt      time.Time

	done     chan struct{}
	err      error
	cancelFn func()
}

// Done returns a channel closed when the turn reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns nil for a completed turn or a *ragchat.TurnError for a failed
// one. Only valid after Done() is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Cancel requests cancellation of the turn. At-most-once semantics: a cancel
// racing the natural end of the stream leaves exactly one terminal outcome.
// Safe to call multiple times and after completion.
func (h *Handle) Cancel() {
	h.cancelFn()
}

// Wait blocks until the turn reaches a terminal state and returns Err().
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}
