package ragchat_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/ragchat"
	"github.com/stretchr/testify/assert"
)

func TestTurnError_WrapsCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection reset")
	err := &ragchat.TurnError{Reason: ragchat.ReasonTransport, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transport_failure")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestTurnError_NoCause(t *testing.T) {
	t.Parallel()
	err := &ragchat.TurnError{Reason: ragchat.ReasonCancelled}
	assert.Equal(t, "turn failed: cancelled", err.Error())
}

func TestTurnError_ErrorsAs(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("start: %w", &ragchat.TurnError{Reason: ragchat.ReasonTimeout})

	var turnErr *ragchat.TurnError
	assert.ErrorAs(t, wrapped, &turnErr)
	assert.Equal(t, ragchat.ReasonTimeout, turnErr.Reason)
}
