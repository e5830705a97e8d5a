package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fwojciec/ragchat"
)

// Interface compliance check.
var _ ragchat.Service = (*Client)(nil)

// Client implements [ragchat.Service] for the PDF RAG chat API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger. Default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a new [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SubmitTurn sends a turn request and returns a [ragchat.Stream] over the
// chunked text response. A non-2xx status before any fragment is read maps
// to ErrInvalidCredential (401/403) or a transport error with the server's
// detail text.
func (c *Client) SubmitTurn(ctx context.Context, req ragchat.TurnRequest) (ragchat.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}

	path := chatPath
	var payload any
	if req.Grounded {
		path = ragChatPath
		payload = ragChatRequest{
			Message: req.Messages[len(req.Messages)-1].Text(),
			Model:   req.Model,
			APIKey:  req.Credential,
		}
	} else {
		developer, user := foldHistory(req)
		payload = chatRequest{
			DeveloperMessage: developer,
			UserMessage:      user,
			Model:            req.Model,
			APIKey:           req.Credential,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("path", path).Bool("grounded", req.Grounded).Msg("submitting turn")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(resp.Body), nil
}

// foldHistory flattens the request history into the two-field wire shape of
// the chat endpoint. The fold is deterministic for a given history: the
// system preamble travels first, prior turns follow verbatim in order with
// role labels, and the final user message travels alone in its own field.
func foldHistory(req ragchat.TurnRequest) (developer, user string) {
	msgs := req.Messages
	user = msgs[len(msgs)-1].Text()
	prior := msgs[:len(msgs)-1]

	var sb strings.Builder
	sb.WriteString(req.SystemPrompt)
	if len(prior) > 0 {
		sb.WriteString("\n\nConversation so far:")
		for _, msg := range prior {
			sb.WriteString("\n")
			sb.WriteString(string(msg.Role()))
			sb.WriteString(": ")
			sb.WriteString(msg.Text())
		}
	}
	return sb.String(), user
}

// DocumentStatus reports whether a document is indexed server-side.
func (c *Client) DocumentStatus(ctx context.Context) (ragchat.DocumentStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return ragchat.DocumentStatus{}, fmt.Errorf("httpapi: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ragchat.DocumentStatus{}, fmt.Errorf("httpapi: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ragchat.DocumentStatus{}, parseHTTPError(resp)
	}

	var sr statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return ragchat.DocumentStatus{}, fmt.Errorf("httpapi: %w", err)
	}
	return ragchat.DocumentStatus{
		Ready:           sr.Uploaded,
		Message:         sr.Message,
		Chunks:          sr.Chunks,
		TotalCharacters: sr.TotalCharacters,
	}, nil
}

// UploadDocument submits a document for indexing as a multipart form.
// Errors leave the server-side index unchanged.
func (c *Client) UploadDocument(ctx context.Context, req ragchat.UploadRequest) (ragchat.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return ragchat.UploadResult{}, fmt.Errorf("httpapi: %w", err)
	}
	if _, err := io.Copy(part, req.Data); err != nil {
		return ragchat.UploadResult{}, fmt.Errorf("httpapi: %w", err)
	}
	if err := mw.Close(); err != nil {
		return ragchat.UploadResult{}, fmt.Errorf("httpapi: %w", err)
	}

	u := c.baseURL + uploadPath
	if req.Credential != "" {
		u += "?api_key=" + url.QueryEscape(req.Credential)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return ragchat.UploadResult{}, fmt.Errorf("httpapi: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	c.log.Debug().Str("filename", req.Filename).Msg("uploading document")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ragchat.UploadResult{}, fmt.Errorf("httpapi: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ragchat.UploadResult{}, parseHTTPError(resp)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return ragchat.UploadResult{}, fmt.Errorf("httpapi: %w", err)
	}
	return ragchat.UploadResult{
		Message:         ur.Message,
		Chunks:          ur.Chunks,
		TotalCharacters: ur.TotalCharacters,
	}, nil
}

// Health checks service availability.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("httpapi: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("httpapi: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp)
	}

	var hr healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return fmt.Errorf("httpapi: %w", err)
	}
	if hr.Status != "ok" {
		return fmt.Errorf("httpapi: service degraded: %s", hr.Status)
	}
	return nil
}

func parseHTTPError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("httpapi: HTTP %d: %w", resp.StatusCode, ragchat.ErrInvalidCredential)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpapi: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Detail == "" {
		return fmt.Errorf("httpapi: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("httpapi: HTTP %d: %s", resp.StatusCode, apiErr.Detail)
}
