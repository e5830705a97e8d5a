package ragchat

// Notification is a sealed interface representing a store change event.
// Notifications are purely informational. They carry enough state for a
// subscriber to re-render without reading the store back.
// The unexported marker method prevents external implementations.
type Notification interface {
	notification()
}

// ConversationCreated signals a new conversation was seeded.
type ConversationCreated struct {
	ConversationID string
}

func (ConversationCreated) notification() {}

// MessageAppended signals an immutable message was appended to history.
type MessageAppended struct {
	ConversationID string
	Message        Message
}

func (MessageAppended) notification() {}

// PendingStarted signals a placeholder assistant message was appended for
// an in-flight turn.
type PendingStarted struct {
	ConversationID string
	Seq            uint64
}

func (PendingStarted) notification() {}

// PendingUpdated signals the in-flight assistant message grew. Content is
// the full accumulated text, not a delta.
type PendingUpdated struct {
	ConversationID string
	Seq            uint64
	Content        string
}

func (PendingUpdated) notification() {}

// PendingFinalized signals the in-flight turn completed and its placeholder
// became a finalized assistant message.
type PendingFinalized struct {
	ConversationID string
	Message        AssistantMessage
}

func (PendingFinalized) notification() {}

// PendingDiscarded signals the in-flight turn failed or was cancelled and
// its placeholder was removed from history.
type PendingDiscarded struct {
	ConversationID string
	Seq            uint64
}

func (PendingDiscarded) notification() {}

// Interface compliance checks.
var (
	_ Notification = ConversationCreated{}
	_ Notification = MessageAppended{}
	_ Notification = PendingStarted{}
	_ Notification = PendingUpdated{}
	_ Notification = PendingFinalized{}
	_ Notification = PendingDiscarded{}
)
