package mock

import (
	"io"
	"sync"

	"github.com/fwojciec/ragchat"
)

// Stream is a test double for ragchat.Stream.
// Set the function fields for the methods you need. NextFn panics when nil
// to catch missing setup. CloseFn and StateFn are nil-safe (no-op and zero
// value) because test code commonly calls defer stream.Close() and these
// methods rarely need custom behavior.
type Stream struct {
	NextFn  func() (string, error)
	StateFn func() ragchat.StreamState
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (string, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() ragchat.StreamState {
	if s.StateFn == nil {
		return ragchat.StreamStateNew
	}
	return s.StateFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// FragmentStream returns a scripted Stream that yields the given fragments
// in order followed by terminal. Terminal io.EOF models normal completion;
// any other error models a transport failure after the fragments. Safe for
// use from a single goroutine at a time, matching the single-actor model of
// a turn.
func FragmentStream(terminal error, fragments ...string) *Stream {
	var (
		mu    sync.Mutex
		i     int
		state = ragchat.StreamStateNew
	)
	if terminal == nil {
		terminal = io.EOF
	}
	return &Stream{
		NextFn: func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if i < len(fragments) {
				frag := fragments[i]
				i++
				state = ragchat.StreamStateStreaming
				return frag, nil
			}
			if terminal == io.EOF {
				state = ragchat.StreamStateComplete
			} else {
				state = ragchat.StreamStateError
			}
			return "", terminal
		},
		StateFn: func() ragchat.StreamState {
			mu.Lock()
			defer mu.Unlock()
			return state
		},
	}
}
