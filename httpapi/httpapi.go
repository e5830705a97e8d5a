// Package httpapi implements [ragchat.Service] for the PDF RAG chat API.
//
// Turn responses arrive as chunked text/plain bodies. The stream wrapper
// re-exposes them through the pull-based [ragchat.Stream] interface, buffering
// partial UTF-8 sequences so a chunk boundary never splits a character.
package httpapi

const (
	defaultBaseURL = "http://localhost:8000"

	chatPath    = "/api/chat"
	ragChatPath = "/api/chat-pdf"
	uploadPath  = "/api/upload-pdf"
	statusPath  = "/api/pdf-status"
	healthPath  = "/api/health"
)

// chatRequest is the wire payload for the general chat endpoint.
type chatRequest struct {
	DeveloperMessage string `json:"developer_message"`
	UserMessage      string `json:"user_message"`
	Model            string `json:"model,omitempty"`
	APIKey           string `json:"api_key"`
}

// ragChatRequest is the wire payload for the document-grounded endpoint.
// The server assembles its own retrieval context; only the question travels.
type ragChatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
	APIKey  string `json:"api_key"`
}

// uploadResponse is the wire shape of a successful document upload.
type uploadResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	Chunks          int    `json:"chunks_count"`
	TotalCharacters int    `json:"total_characters"`
}

// statusResponse is the wire shape of the document status endpoint.
type statusResponse struct {
	Uploaded        bool   `json:"uploaded"`
	Message         string `json:"message"`
	Chunks          int    `json:"chunks_count"`
	TotalCharacters int    `json:"total_characters"`
}

// healthResponse is the wire shape of the health endpoint.
type healthResponse struct {
	Status string `json:"status"`
}

// errorResponse is the wire shape of an API error.
type errorResponse struct {
	Detail string `json:"detail"`
}
