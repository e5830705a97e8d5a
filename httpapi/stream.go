package httpapi

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fwojciec/ragchat"
)

// stream implements [ragchat.Stream] over a chunked text/plain response body.
// Fragments are returned in arrival order; bytes of a multi-byte character
// split across chunk boundaries are held back until the character completes.
//
// Next is called from a single goroutine, but Close may arrive from another
// one mid-read, so the state fields are mutex-guarded. The blocking body.Read
// happens outside the lock; closing the body is what unblocks it.
type stream struct {
	body io.ReadCloser
	buf  []byte // read buffer, touched only by Next

	mu      sync.Mutex
	state   ragchat.StreamState
	partial []byte // carried bytes of an incomplete trailing rune
	err     error  // terminal error, if any
}

// Interface compliance check.
var _ ragchat.Stream = (*stream)(nil)

func newStream(body io.ReadCloser) *stream {
	return &stream{
		body:  body,
		state: ragchat.StreamStateNew,
		buf:   make([]byte, 4096),
	}
}

// Next reads the next text fragment. Returns io.EOF when the body is
// exhausted. After a terminal result, Next keeps returning it.
func (s *stream) Next() (string, error) {
	s.mu.Lock()
	switch s.state {
	case ragchat.StreamStateComplete:
		s.mu.Unlock()
		return "", io.EOF
	case ragchat.StreamStateError:
		err := s.err
		s.mu.Unlock()
		return "", err
	case ragchat.StreamStateClosed:
		s.mu.Unlock()
		return "", fmt.Errorf("httpapi: %w", ragchat.ErrStreamClosed)
	}
	s.mu.Unlock()

	for {
		n, err := s.body.Read(s.buf)

		s.mu.Lock()
		if s.state == ragchat.StreamStateClosed {
			// Closed out from under the read. Whatever Read returned, the
			// terminal result is the closed stream.
			s.mu.Unlock()
			return "", fmt.Errorf("httpapi: %w", ragchat.ErrStreamClosed)
		}
		if n > 0 {
			s.state = ragchat.StreamStateStreaming
			s.partial = append(s.partial, s.buf[:n]...)
			if k := completeLen(s.partial); k > 0 {
				frag := string(s.partial[:k])
				s.partial = append(s.partial[:0], s.partial[k:]...)
				s.mu.Unlock()
				// A simultaneous error resurfaces on the next Read.
				return frag, nil
			}
		}
		if err == io.EOF {
			if len(s.partial) > 0 {
				// Trailing bytes that can never complete a character are
				// decoded with replacement runes.
				frag := strings.ToValidUTF8(string(s.partial), string(utf8.RuneError))
				s.partial = nil
				s.state = ragchat.StreamStateStreaming
				s.mu.Unlock()
				return frag, nil
			}
			s.state = ragchat.StreamStateComplete
			s.mu.Unlock()
			return "", io.EOF
		}
		if err != nil {
			s.state = ragchat.StreamStateError
			s.err = fmt.Errorf("httpapi: %w", err)
			terminal := s.err
			s.mu.Unlock()
			return "", terminal
		}
		s.mu.Unlock()
	}
}

// State returns the current stream state.
func (s *stream) State() ragchat.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close closes the underlying HTTP response body, unblocking a concurrent
// Next. Safe to call from any goroutine and after a terminal result.
func (s *stream) Close() error {
	s.mu.Lock()
	if s.state != ragchat.StreamStateComplete && s.state != ragchat.StreamStateError {
		s.state = ragchat.StreamStateClosed
	}
	s.mu.Unlock()
	return s.body.Close()
}

// completeLen returns the length of the longest prefix of b that ends on a
// character boundary. Bytes past that point begin a rune whose remaining
// bytes have not arrived yet.
func completeLen(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
