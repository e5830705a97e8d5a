package ragchat

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem           Role = "system"
	RoleUser             Role = "user"
	RoleAssistant        Role = "assistant"
	RolePendingAssistant Role = "assistant_pending"
)
