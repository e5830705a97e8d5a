// Package mock provides test doubles for ragchat interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/ragchat"
)

// Interface compliance checks.
var (
	_ ragchat.Service = (*Service)(nil)
	_ ragchat.Stream  = (*Stream)(nil)
)

// Service is a test double for ragchat.Service.
// Set the function fields for the methods you need; unset methods panic to
// catch missing setup.
type Service struct {
	SubmitTurnFn     func(ctx context.Context, req ragchat.TurnRequest) (ragchat.Stream, error)
	DocumentStatusFn func(ctx context.Context) (ragchat.DocumentStatus, error)
	UploadDocumentFn func(ctx context.Context, req ragchat.UploadRequest) (ragchat.UploadResult, error)
	HealthFn         func(ctx context.Context) error
}

// SubmitTurn delegates to SubmitTurnFn.
func (s *Service) SubmitTurn(ctx context.Context, req ragchat.TurnRequest) (ragchat.Stream, error) {
	return s.SubmitTurnFn(ctx, req)
}

// DocumentStatus delegates to DocumentStatusFn.
func (s *Service) DocumentStatus(ctx context.Context) (ragchat.DocumentStatus, error) {
	return s.DocumentStatusFn(ctx)
}

// UploadDocument delegates to UploadDocumentFn.
func (s *Service) UploadDocument(ctx context.Context, req ragchat.UploadRequest) (ragchat.UploadResult, error) {
	return s.UploadDocumentFn(ctx, req)
}

// Health delegates to HealthFn.
func (s *Service) Health(ctx context.Context) error {
	return s.HealthFn(ctx)
}
