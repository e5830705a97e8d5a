package ragchat

import "time"

// Message is a sealed interface representing a conversation message.
// The unexported marker method prevents external implementations.
// Sequence numbers are assigned by the store, are strictly increasing
// within a conversation, and are never reused.
type Message interface {
	isMessage()
	Role() Role
	Sequence() uint64
	Text() string
}

// SystemMessage is the conversation preamble. Exactly one per conversation,
// always first.
type SystemMessage struct {
	Seq       uint64
	Content   string
	Timestamp time.Time
}

func (SystemMessage) isMessage() {}

// Role returns RoleSystem.
func (SystemMessage) Role() Role { return RoleSystem }

// Sequence returns the store-assigned sequence number.
func (m SystemMessage) Sequence() uint64 { return m.Seq }

// Text returns the message content.
func (m SystemMessage) Text() string { return m.Content }

// UserMessage represents a message from the user.
type UserMessage struct {
	Seq       uint64
	Content   string
	Timestamp time.Time
}

func (UserMessage) isMessage() {}

// Role returns RoleUser.
func (UserMessage) Role() Role { return RoleUser }

// Sequence returns the store-assigned sequence number.
func (m UserMessage) Sequence() uint64 { return m.Seq }

// Text returns the message content.
func (m UserMessage) Text() string { return m.Content }

// AssistantMessage represents a finalized assistant reply. Immutable once
// appended to history.
type AssistantMessage struct {
	Seq       uint64
	Content   string
	Timestamp time.Time
}

func (AssistantMessage) isMessage() {}

// Role returns RoleAssistant.
func (AssistantMessage) Role() Role { return RoleAssistant }

// Sequence returns the store-assigned sequence number.
func (m AssistantMessage) Sequence() uint64 { return m.Seq }

// Text returns the message content.
func (m AssistantMessage) Text() string { return m.Content }

// PendingAssistantMessage is the in-progress assistant reply for the
// conversation's single in-flight turn. It only ever appears as the last
// entry in history, and its content grows as stream fragments arrive. It is
// either finalized into an AssistantMessage or discarded; it never survives
// turn completion.
type PendingAssistantMessage struct {
	Seq       uint64
	Content   string
	Timestamp time.Time
}

func (PendingAssistantMessage) isMessage() {}

// Role returns RolePendingAssistant.
func (PendingAssistantMessage) Role() Role { return RolePendingAssistant }

// Sequence returns the store-assigned sequence number.
func (m PendingAssistantMessage) Sequence() uint64 { return m.Seq }

// Text returns the content accumulated so far.
func (m PendingAssistantMessage) Text() string { return m.Content }

// Interface compliance checks.
var (
	_ Message = SystemMessage{}
	_ Message = UserMessage{}
	_ Message = AssistantMessage{}
	_ Message = PendingAssistantMessage{}
)
