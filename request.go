package ragchat

import "fmt"

// TurnRequest carries one turn's payload to the remote service.
// The service uses its own defaults when fields are empty.
type TurnRequest struct {
	Grounded     bool   // true targets the document-grounded endpoint
	Model        string // model ID; empty = service default
	SystemPrompt string
	Messages     []Message // ordered history, ending with the new user message
	Credential   string    // opaque; never log or inspect
}

// Validate checks universal constraints on TurnRequest.
// Service implementations may apply additional validation.
func (r TurnRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty: %w", ErrValidation)
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role() != RoleUser {
		return fmt.Errorf("last message must be from the user, got %s: %w", last.Role(), ErrValidation)
	}
	for _, msg := range r.Messages {
		if msg.Role() == RolePendingAssistant {
			return fmt.Errorf("pending assistant message in request history: %w", ErrValidation)
		}
	}
	return nil
}
