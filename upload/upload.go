// Package upload orchestrates document indexing: it locates a document by
// glob pattern, submits it to the remote service, and flips the document
// gate on success. Failures leave the gate untouched.
package upload

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/fwojciec/ragchat"
)

// Uploader runs the upload workflow against a service and gate.
type Uploader struct {
	service ragchat.Service
	gate    *ragchat.DocumentGate
	creds   ragchat.Credentials
	log     zerolog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithLogger sets the structured logger. Default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(u *Uploader) { u.log = log }
}

// New creates an Uploader.
func New(svc ragchat.Service, gate *ragchat.DocumentGate, creds ragchat.Credentials, opts ...Option) *Uploader {
	u := &Uploader{service: svc, gate: gate, creds: creds, log: zerolog.Nop()}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Find locates the document to upload. Pattern supports ** for recursive
// matching and is resolved relative to dir. When several files match, the
// lexically first wins, so repeated runs pick the same document.
func Find(dir, pattern string) (string, error) {
	if pattern == "" {
		return "", fmt.Errorf("upload: pattern is required: %w", ragchat.ErrValidation)
	}
	if !doublestar.ValidatePattern(pattern) {
		return "", fmt.Errorf("upload: invalid glob pattern %q: %w", pattern, ragchat.ErrValidation)
	}

	var matches []string
	fsys := os.DirFS(dir)
	err := doublestar.GlobWalk(fsys, pattern, func(path string, d iofs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			matches = append(matches, filepath.FromSlash(path))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("upload: matching %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("upload: no PDF matches %q: %w", pattern, os.ErrNotExist)
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[0]), nil
}

// Run uploads the file at path and marks the gate ready with the index
// metadata the service reports. On any error the gate keeps its previous
// state.
func (u *Uploader) Run(ctx context.Context, path string) (ragchat.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ragchat.UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	defer f.Close()

	credential, _ := u.creds.Get()
	result, err := u.service.UploadDocument(ctx, ragchat.UploadRequest{
		Filename:   filepath.Base(path),
		Data:       f,
		Credential: credential,
	})
	if err != nil {
		u.log.Warn().Str("file", filepath.Base(path)).Err(err).Msg("upload failed")
		return ragchat.UploadResult{}, err
	}

	u.gate.MarkReady(ragchat.DocumentStatus{
		Message:         result.Message,
		Chunks:          result.Chunks,
		TotalCharacters: result.TotalCharacters,
	})
	u.log.Info().Str("file", filepath.Base(path)).Int("chunks", result.Chunks).Msg("document indexed")
	return result, nil
}

// Seed polls the remote document status once and primes the gate from it.
// Used at session start: a document uploaded by an earlier session may
// already be indexed server-side.
func (u *Uploader) Seed(ctx context.Context) error {
	status, err := u.service.DocumentStatus(ctx)
	if err != nil {
		return err
	}
	if status.Ready {
		u.gate.MarkReady(status)
	}
	return nil
}
