package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/ragchat"
	"github.com/fwojciec/ragchat/httpapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turnRequest(grounded bool, msgs ...ragchat.Message) ragchat.TurnRequest {
	return ragchat.TurnRequest{
		Grounded:     grounded,
		Model:        "gpt-4.1-mini",
		SystemPrompt: "You are helpful.",
		Messages:     msgs,
		Credential:   "sk-test",
	}
}

func TestSubmitTurn_ChatRequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Hello!"))
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	s, err := client.SubmitTurn(context.Background(), turnRequest(false,
		ragchat.UserMessage{Seq: 1, Content: "one"},
		ragchat.AssistantMessage{Seq: 2, Content: "first reply"},
		ragchat.UserMessage{Seq: 3, Content: "two"},
	))
	require.NoError(t, err)
	defer s.Close()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(captured, &body))

	assert.Equal(t, "gpt-4.1-mini", body["model"])
	assert.Equal(t, "sk-test", body["api_key"])
	assert.Equal(t, "two", body["user_message"])

	developer := body["developer_message"].(string)
	assert.True(t, strings.HasPrefix(developer, "You are helpful."))
	assert.Contains(t, developer, "user: one")
	assert.Contains(t, developer, "assistant: first reply")
	assert.NotContains(t, developer, "two", "the new utterance travels only in user_message")
}

func TestSubmitTurn_FoldIsDeterministic(t *testing.T) {
	t.Parallel()

	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	req := turnRequest(false,
		ragchat.UserMessage{Content: "one"},
		ragchat.AssistantMessage{Content: "reply"},
		ragchat.UserMessage{Content: "two"},
	)
	for i := 0; i < 2; i++ {
		s, err := client.SubmitTurn(context.Background(), req)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
}

func TestSubmitTurn_GroundedRequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		assert.Equal(t, "/api/chat-pdf", r.URL.Path)
		_, _ = w.Write([]byte("From the document."))
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	s, err := client.SubmitTurn(context.Background(), turnRequest(true,
		ragchat.UserMessage{Content: "what's in the doc?"},
	))
	require.NoError(t, err)
	defer s.Close()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, "what's in the doc?", body["message"])
	assert.Equal(t, "sk-test", body["api_key"])
	_, hasDeveloper := body["developer_message"]
	assert.False(t, hasDeveloper, "grounded endpoint assembles its own context")
}

func TestSubmitTurn_StreamsFragments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, piece := range []string{"He", "llo", "!"} {
			_, _ = w.Write([]byte(piece))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	s, err := client.SubmitTurn(context.Background(), turnRequest(false,
		ragchat.UserMessage{Content: "hi"},
	))
	require.NoError(t, err)
	defer s.Close()

	frags, err := drain(t, s)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "Hello!", strings.Join(frags, ""))
}

func TestSubmitTurn_CloseReleasesStalledStream(t *testing.T) {
	t.Parallel()

	stall := make(chan struct{})
	defer close(stall)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("thinking"))
		w.(http.Flusher).Flush()
		// Hold the body open until the client tears the request down.
		select {
		case <-stall:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	s, err := client.SubmitTurn(context.Background(), turnRequest(false,
		ragchat.UserMessage{Content: "hi"},
	))
	require.NoError(t, err)

	frag, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "thinking", frag)

	result := make(chan error, 1)
	go func() {
		_, err := s.Next()
		result <- err
	}()

	require.NoError(t, s.Close())

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ragchat.ErrStreamClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Next still blocked after Close")
	}
}

func TestSubmitTurn_UnauthorizedMapsToInvalidCredential(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	_, err := client.SubmitTurn(context.Background(), turnRequest(false,
		ragchat.UserMessage{Content: "hi"},
	))
	assert.ErrorIs(t, err, ragchat.ErrInvalidCredential)
}

func TestSubmitTurn_ServerErrorCarriesDetail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"model overloaded"}`))
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	_, err := client.SubmitTurn(context.Background(), turnRequest(false,
		ragchat.UserMessage{Content: "hi"},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestSubmitTurn_InvalidRequest(t *testing.T) {
	t.Parallel()
	client := httpapi.New()
	_, err := client.SubmitTurn(context.Background(), ragchat.TurnRequest{})
	assert.ErrorIs(t, err, ragchat.ErrValidation)
}

func TestUploadDocument_MultipartFormat(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload-pdf", r.URL.Path)
		assert.Equal(t, "sk-test", r.URL.Query().Get("api_key"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "paper.pdf", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 fake", string(content))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"PDF 'paper.pdf' uploaded and indexed successfully","chunks_count":12,"total_characters":9000}`))
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	result, err := client.UploadDocument(context.Background(), ragchat.UploadRequest{
		Filename:   "paper.pdf",
		Data:       strings.NewReader("%PDF-1.4 fake"),
		Credential: "sk-test",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, result.Chunks)
	assert.Equal(t, 9000, result.TotalCharacters)
	assert.Contains(t, result.Message, "paper.pdf")
}

func TestUploadDocument_RejectedFileType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Only PDF files are allowed"}`))
	}))
	defer srv.Close()

	client := httpapi.New(httpapi.WithBaseURL(srv.URL))
	_, err := client.UploadDocument(context.Background(), ragchat.UploadRequest{
		Filename: "notes.txt",
		Data:     strings.NewReader("plain text"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only PDF files are allowed")
}

func TestDocumentStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want ragchat.DocumentStatus
	}{
		{
			name: "no document",
			body: `{"uploaded":false,"message":"No PDF has been uploaded"}`,
			want: ragchat.DocumentStatus{Message: "No PDF has been uploaded"},
		},
		{
			name: "indexed",
			body: `{"uploaded":true,"message":"PDF is ready for chat","chunks_count":7,"total_characters":4200}`,
			want: ragchat.DocumentStatus{Ready: true, Message: "PDF is ready for chat", Chunks: 7, TotalCharacters: 4200},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/pdf-status", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := httpapi.New(httpapi.WithBaseURL(srv.URL))
			status, err := client.DocumentStatus(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/health", r.URL.Path)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
		defer srv.Close()

		client := httpapi.New(httpapi.WithBaseURL(srv.URL))
		assert.NoError(t, client.Health(context.Background()))
	})

	t.Run("degraded", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
		}))
		defer srv.Close()

		client := httpapi.New(httpapi.WithBaseURL(srv.URL))
		err := client.Health(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "degraded")
	})
}
