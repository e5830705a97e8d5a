package ragchat

import (
	"context"
	"io"
)

// Service is the contract with the remote conversational AI service.
// Implementations own transport concerns; callers only see fragments,
// results, and errors.
type Service interface {
	// SubmitTurn sends a turn request and returns a Stream of response
	// fragments. A non-nil error means streaming never began.
	SubmitTurn(ctx context.Context, req TurnRequest) (Stream, error)

	// DocumentStatus reports whether a document is currently indexed
	// server-side.
	DocumentStatus(ctx context.Context) (DocumentStatus, error)

	// UploadDocument submits a document for indexing. On success the
	// document becomes available for grounded turns. Errors leave the
	// server-side state unchanged.
	UploadDocument(ctx context.Context, req UploadRequest) (UploadResult, error)

	// Health checks service availability. Advisory only; never gates
	// turn submission.
	Health(ctx context.Context) error
}

// UploadRequest carries a document to be indexed by the remote service.
type UploadRequest struct {
	Filename   string
	Data       io.Reader
	Credential string
}

// UploadResult reports the outcome of a successful document upload.
type UploadResult struct {
	Message         string
	Chunks          int
	TotalCharacters int
}
