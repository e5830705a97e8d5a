// Package store implements the in-memory conversation log. It owns all
// message data for the session: ordered, append-only histories with a single
// controlled in-place mutation, the pending assistant placeholder of the
// conversation's one in-flight turn.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fwojciec/ragchat"
)

// Store holds every conversation for the session. All methods are safe for
// concurrent use. Mutations are synchronous and in-memory; the only blocking
// operation in a turn's lifecycle lives in the stream, not here.
type Store struct {
	mu    sync.RWMutex
	convs map[string]*conversation

	subMu sync.RWMutex
	subs  []func(ragchat.Notification)
}

// conversation state. Invariant: pending is true if and only if the last
// message has role assistant_pending. nextSeq only ever grows, so sequence
// numbers are never reused, even across discarded placeholders.
type conversation struct {
	id      string
	gated   bool
	msgs    []ragchat.Message
	nextSeq uint64
	pending bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{convs: make(map[string]*conversation)}
}

// Subscribe registers fn to receive a notification after every mutation
// commits. Notifications for a single conversation arrive in mutation order.
// fn runs on the mutating goroutine and must not call back into the Store.
func (s *Store) Subscribe(fn func(ragchat.Notification)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) publish(n ragchat.Notification) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.subs {
		fn(n)
	}
}

// Create seeds a new conversation with a system preamble.
// Returns ErrConversationExists if id is already in use.
func (s *Store) Create(id, preamble string, gated bool) error {
	s.mu.Lock()
	if _, ok := s.convs[id]; ok {
		s.mu.Unlock()
		return fmt.Errorf("create %q: %w", id, ragchat.ErrConversationExists)
	}
	c := &conversation{id: id, gated: gated}
	c.msgs = append(c.msgs, ragchat.SystemMessage{
		Seq:       c.nextSeq,
		Content:   preamble,
		Timestamp: time.Now(),
	})
	c.nextSeq++
	s.convs[id] = c
	s.mu.Unlock()

	s.publish(ragchat.ConversationCreated{ConversationID: id})
	return nil
}

// IDs returns the conversation IDs in lexical order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.convs))
	for id := range s.convs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Gated reports whether the conversation requires the document gate.
func (s *Store) Gated(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return false, fmt.Errorf("gated %q: %w", id, ragchat.ErrUnknownConversation)
	}
	return c.gated, nil
}

// HasPending reports whether the conversation has a turn in flight.
func (s *Store) HasPending(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return false, fmt.Errorf("pending %q: %w", id, ragchat.ErrUnknownConversation)
	}
	return c.pending, nil
}

// AppendUser appends a user message. Returns ErrPendingTurnConflict without
// touching history when a turn is already in flight.
func (s *Store) AppendUser(id, text string) (ragchat.UserMessage, error) {
	s.mu.Lock()
	c, ok := s.convs[id]
	if !ok {
		s.mu.Unlock()
		return ragchat.UserMessage{}, fmt.Errorf("append user %q: %w", id, ragchat.ErrUnknownConversation)
	}
	if c.pending {
		s.mu.Unlock()
		return ragchat.UserMessage{}, fmt.Errorf("append user %q: %w", id, ragchat.ErrPendingTurnConflict)
	}
	msg := ragchat.UserMessage{Seq: c.nextSeq, Content: text, Timestamp: time.Now()}
	c.nextSeq++
	c.msgs = append(c.msgs, msg)
	s.mu.Unlock()

	s.publish(ragchat.MessageAppended{ConversationID: id, Message: msg})
	return msg, nil
}

// BeginPending appends an empty assistant placeholder and returns its
// sequence number. Returns ErrPendingTurnConflict if one already exists.
func (s *Store) BeginPending(id string) (uint64, error) {
	s.mu.Lock()
	c, ok := s.convs[id]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("begin pending %q: %w", id, ragchat.ErrUnknownConversation)
	}
	if c.pending {
		s.mu.Unlock()
		return 0, fmt.Errorf("begin pending %q: %w", id, ragchat.ErrPendingTurnConflict)
	}
	seq := c.nextSeq
	c.nextSeq++
	c.msgs = append(c.msgs, ragchat.PendingAssistantMessage{Seq: seq, Timestamp: time.Now()})
	c.pending = true
	s.mu.Unlock()

	s.publish(ragchat.PendingStarted{ConversationID: id, Seq: seq})
	return seq, nil
}

// UpdatePending replaces the placeholder's content in place. Content is the
// full accumulated text for the turn, not a delta. Tolerant of rapid
// repeated calls. Returns ErrNoPendingTurn if no turn is in flight.
func (s *Store) UpdatePending(id, content string) error {
	s.mu.Lock()
	c, pending, err := s.pendingLocked(id, "update pending")
	if err != nil {
		s.mu.Unlock()
		return err
	}
	pending.Content = content
	c.msgs[len(c.msgs)-1] = pending
	s.mu.Unlock()

	s.publish(ragchat.PendingUpdated{ConversationID: id, Seq: pending.Seq, Content: content})
	return nil
}

// FinalizePending converts the placeholder into a finalized assistant
// message with its current content, frozen thereafter.
func (s *Store) FinalizePending(id string) (ragchat.AssistantMessage, error) {
	s.mu.Lock()
	c, pending, err := s.pendingLocked(id, "finalize pending")
	if err != nil {
		s.mu.Unlock()
		return ragchat.AssistantMessage{}, err
	}
	msg := ragchat.AssistantMessage{Seq: pending.Seq, Content: pending.Content, Timestamp: time.Now()}
	c.msgs[len(c.msgs)-1] = msg
	c.pending = false
	s.mu.Unlock()

	s.publish(ragchat.PendingFinalized{ConversationID: id, Message: msg})
	return msg, nil
}

// DiscardPending removes the placeholder entirely. The preceding user
// message stays in history. The placeholder's sequence number is retired,
// never reassigned.
func (s *Store) DiscardPending(id string) error {
	s.mu.Lock()
	c, pending, err := s.pendingLocked(id, "discard pending")
	if err != nil {
		s.mu.Unlock()
		return err
	}
	c.msgs = c.msgs[:len(c.msgs)-1]
	c.pending = false
	s.mu.Unlock()

	s.publish(ragchat.PendingDiscarded{ConversationID: id, Seq: pending.Seq})
	return nil
}

// History returns a consistent snapshot of the conversation's messages in
// order. Message values are immutable, so callers may retain the slice.
func (s *Store) History(id string, includeSystem bool) ([]ragchat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, fmt.Errorf("history %q: %w", id, ragchat.ErrUnknownConversation)
	}
	msgs := c.msgs
	if !includeSystem && len(msgs) > 0 {
		if _, ok := msgs[0].(ragchat.SystemMessage); ok {
			msgs = msgs[1:]
		}
	}
	out := make([]ragchat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Preamble returns the conversation's system preamble.
func (s *Store) Preamble(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return "", fmt.Errorf("preamble %q: %w", id, ragchat.ErrUnknownConversation)
	}
	if sys, ok := c.msgs[0].(ragchat.SystemMessage); ok {
		return sys.Content, nil
	}
	return "", nil
}

// pendingLocked fetches the conversation and its pending placeholder.
// Caller holds s.mu.
func (s *Store) pendingLocked(id, op string) (*conversation, ragchat.PendingAssistantMessage, error) {
	c, ok := s.convs[id]
	if !ok {
		return nil, ragchat.PendingAssistantMessage{}, fmt.Errorf("%s %q: %w", op, id, ragchat.ErrUnknownConversation)
	}
	if !c.pending {
		return nil, ragchat.PendingAssistantMessage{}, fmt.Errorf("%s %q: %w", op, id, ragchat.ErrNoPendingTurn)
	}
	pending, ok := c.msgs[len(c.msgs)-1].(ragchat.PendingAssistantMessage)
	if !ok {
		// Unreachable while the pending invariant holds.
		return nil, ragchat.PendingAssistantMessage{}, fmt.Errorf("%s %q: %w", op, id, ragchat.ErrNoPendingTurn)
	}
	return c, pending, nil
}
