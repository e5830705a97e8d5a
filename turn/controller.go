// Package turn orchestrates request/response turns between the conversation
// store and the remote service. A turn moves through Submitted, Streaming,
// and Finalizing into exactly one of Completed or Failed; the placeholder
// assistant message either becomes a finalized message or is removed without
// residue.
package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/store"
)

const defaultIdleTimeout = 30 * time.Second

// Controller starts, cancels, and settles turns. All store mutations for a
// turn happen on that turn's single goroutine, so fragment merges are applied
// in delivery order and never interleave with finalize or discard.
type Controller struct {
	store   *store.Store
	service ragchat.Service
	gate    *ragchat.DocumentGate
	creds   ragchat.Credentials
	model   string
	idle    time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	active map[string]*activeTurn // keyed by turn ID
}

// Option configures a Controller.
type Option func(*Controller)

// WithModel sets the model ID for service requests. Empty string means the
// service uses its default model.
func WithModel(model string) Option {
	return func(c *Controller) { c.model = model }
}

// WithIdleTimeout sets the window after which a turn with no received
// fragment fails with ReasonTimeout. Default is 30s.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Controller) { c.idle = d }
}

// WithLogger sets the structured logger. Default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// New creates a Controller. The gate is consulted only for conversations
// created as gated, and only at turn start.
func New(st *store.Store, svc ragchat.Service, gate *ragchat.DocumentGate, creds ragchat.Credentials, opts ...Option) *Controller {
	c := &Controller{
		store:   st,
		service: svc,
		gate:    gate,
		creds:   creds,
		idle:    defaultIdleTimeout,
		log:     zerolog.Nop(),
		active:  make(map[string]*activeTurn),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start begins a turn on the given conversation with the user's utterance.
// It returns once the stream is open; fragments are merged in the
// background. The returned Handle reports completion via Done() and Err().
//
// Failure modes before streaming: ErrUnknownConversation,
// ErrPendingTurnConflict (history untouched), ErrNotReady (nothing
// appended), and a *TurnError when the service rejects the request — in
// that case the user message stays in history and the conversation
// immediately accepts a new turn.
func (c *Controller) Start(ctx context.Context, conversationID, userText string) (*Handle, error) {
	gated, err := c.store.Gated(conversationID)
	if err != nil {
		return nil, err
	}
	if gated && !c.gate.Ready() {
		return nil, fmt.Errorf("start turn on %q: %w", conversationID, ragchat.ErrNotReady)
	}

	if _, err := c.store.AppendUser(conversationID, userText); err != nil {
		return nil, err
	}
	if _, err := c.store.BeginPending(conversationID); err != nil {
		// AppendUser succeeding and BeginPending conflicting means another
		// Start raced us between the two calls; surface the conflict.
		return nil, err
	}

	req, err := c.buildRequest(conversationID, gated)
	if err != nil {
		_ = c.store.DiscardPending(conversationID)
		return nil, err
	}

	// The turn context is what Cancel and the watchdog pull: cancelling it
	// tears down the in-flight request, which unblocks the actor's read.
	turnCtx, cancel := context.WithCancel(ctx)

	stream, err := c.service.SubmitTurn(turnCtx, req)
	if err != nil {
		cancel()
		_ = c.store.DiscardPending(conversationID)
		turnErr := &ragchat.TurnError{Reason: classify(err), Err: err}
		c.log.Warn().Str("conversation", conversationID).Str("reason", string(turnErr.Reason)).Msg("turn rejected before streaming")
		return nil, turnErr
	}

	at := &activeTurn{
		id:           uuid.NewString(),
		conversation: conversationID,
		stream:       stream,
		cancel:       cancel,
		lastActivity: time.Now(),
	}
	handle := &Handle{
		ID:             at.id,
		ConversationID: conversationID,
		StartedAt:      time.Now(),
		done:           make(chan struct{}),
		cancelFn:       func() { _ = c.Cancel(at.id) },
	}
	at.handle = handle

	c.mu.Lock()
	c.active[at.id] = at
	c.mu.Unlock()

	c.log.Debug().Str("turn", at.id).Str("conversation", conversationID).Bool("grounded", gated).Msg("turn started")

	go c.watchdog(turnCtx, at)
	go c.run(at)

	return handle, nil
}

// Cancel forces a streaming turn into the Failed state with ReasonCancelled.
// It releases the underlying stream resource before returning. A cancel
// racing a natural end of stream is a no-op: whichever transition settles
// the turn first wins. Returns ErrTurnNotFound for unknown or already
// finished turn IDs.
func (c *Controller) Cancel(turnID string) error {
	c.mu.Lock()
	at, ok := c.active[turnID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("cancel %q: %w", turnID, ragchat.ErrTurnNotFound)
	}
	if at.settleFailed(ragchat.ReasonCancelled) {
		at.cancel()
		_ = at.stream.Close()
		c.log.Debug().Str("turn", turnID).Msg("turn cancelled")
	}
	return nil
}

// run is the turn's single actor. It pulls fragments in delivery order,
// merges the growing accumulation into the store, and applies exactly one
// terminal transition.
func (c *Controller) run(at *activeTurn) {
	var acc strings.Builder
	fragments := 0

	for {
		frag, err := at.stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if at.settleFailed(ragchat.ReasonTransport) {
				at.wrapped = err
			}
			break
		}
		at.touch()
		fragments++
		acc.WriteString(frag)
		if err := c.store.UpdatePending(at.conversation, acc.String()); err != nil {
			// Pending placeholder gone mid-turn is an orchestration bug.
			if at.settleFailed(ragchat.ReasonTransport) {
				at.wrapped = err
			}
			break
		}
	}

	c.finish(at, fragments)
}

// finish applies the terminal transition decided by the settle token and
// releases the turn's resources.
func (c *Controller) finish(at *activeTurn, fragments int) {
	var turnErr *ragchat.TurnError
	if at.settleCompleted() {
		if _, err := c.store.FinalizePending(at.conversation); err != nil {
			turnErr = &ragchat.TurnError{Reason: ragchat.ReasonTransport, Err: err}
		}
	} else {
		_, reason := at.outcome()
		_ = c.store.DiscardPending(at.conversation)
		turnErr = &ragchat.TurnError{Reason: reason, Err: at.wrapped}
	}

	at.cancel()
	_ = at.stream.Close()

	c.mu.Lock()
	delete(c.active, at.id)
	c.mu.Unlock()

	evt := c.log.Debug().Str("turn", at.id).Str("conversation", at.conversation).Int("fragments", fragments)
	if turnErr != nil {
		evt.Str("reason", string(turnErr.Reason)).Msg("turn failed")
	} else {
		evt.Msg("turn completed")
	}

	// Assign through the concrete check: a nil *TurnError stored in the
	// error interface would read as non-nil.
	if turnErr != nil {
		at.handle.err = turnErr
	}
	close(at.handle.done)
}

// watchdog fails the turn with ReasonTimeout when no fragment arrives
// within the idle window. Closing the stream unblocks the actor goroutine.
func (c *Controller) watchdog(ctx context.Context, at *activeTurn) {
	tick := c.idle / 4
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-at.handle.done:
			return
		case <-ticker.C:
			if time.Since(at.idleSince()) < c.idle {
				continue
			}
			if at.settleFailed(ragchat.ReasonTimeout) {
				at.cancel()
				_ = at.stream.Close()
				c.log.Warn().Str("turn", at.id).Dur("idle", c.idle).Msg("turn timed out")
			}
			return
		}
	}
}

// buildRequest assembles the deterministic turn payload: system preamble
// plus the full prior history verbatim, ending with the just-appended user
// message. The pending placeholder is excluded.
func (c *Controller) buildRequest(conversationID string, gated bool) (ragchat.TurnRequest, error) {
	preamble, err := c.store.Preamble(conversationID)
	if err != nil {
		return ragchat.TurnRequest{}, err
	}
	history, err := c.store.History(conversationID, false)
	if err != nil {
		return ragchat.TurnRequest{}, err
	}
	msgs := make([]ragchat.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role() == ragchat.RolePendingAssistant {
			continue
		}
		msgs = append(msgs, msg)
	}

	credential, _ := c.creds.Get()
	req := ragchat.TurnRequest{
		Grounded:     gated,
		Model:        c.model,
		SystemPrompt: preamble,
		Messages:     msgs,
		Credential:   credential,
	}
	if err := req.Validate(); err != nil {
		return ragchat.TurnRequest{}, err
	}
	return req, nil
}

// classify maps a pre-streaming submission error to a failure reason.
func classify(err error) ragchat.FailReason {
	if errors.Is(err, ragchat.ErrInvalidCredential) {
		return ragchat.ReasonInvalidCredential
	}
	return ragchat.ReasonTransport
}

// activeTurn carries the mutable state of one in-flight turn. The settled
// flag is the single ownership token: the first transition to acquire it
// decides the outcome, every later attempt is a no-op.
type activeTurn struct {
	id           string
	conversation string
	stream       ragchat.Stream
	cancel       context.CancelFunc
	handle       *Handle
	wrapped      error // underlying cause for failed outcomes

	mu           sync.Mutex
	settled      bool
	completed    bool
	reason       ragchat.FailReason
	lastActivity time.Time
}

func (a *activeTurn) settleCompleted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.settled {
		return false
	}
	a.settled = true
	a.completed = true
	return true
}

func (a *activeTurn) settleFailed(reason ragchat.FailReason) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.settled {
		return false
	}
	a.settled = true
	a.reason = reason
	return true
}

func (a *activeTurn) outcome() (completed bool, reason ragchat.FailReason) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completed, a.reason
}

func (a *activeTurn) touch() {
	a.mu.Lock()
	a.lastActivity = time.Now()
	a.mu.Unlock()
}

func (a *activeTurn) idleSince() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastActivity
}
