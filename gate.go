package ragchat

import "sync"

// DocumentStatus describes the server-side document index.
type DocumentStatus struct {
	Ready           bool
	Message         string
	Chunks          int
	TotalCharacters int
}

// DocumentGate tracks whether the remote service currently has an indexed
// document. It is a pure gate: grounded conversations consult it once at
// turn start, never mid-stream. The gate is mutated only by the upload
// workflow and is safe for concurrent reads. Last write wins when a new
// document replaces the old one.
type DocumentGate struct {
	mu     sync.RWMutex
	status DocumentStatus
}

// NewDocumentGate returns a gate in the not-ready state.
func NewDocumentGate() *DocumentGate {
	return &DocumentGate{}
}

// MarkReady records a successful upload or an already-indexed document.
func (g *DocumentGate) MarkReady(status DocumentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status.Ready = true
	g.status = status
}

// MarkNotReady resets the gate, e.g. when a replacement upload begins.
func (g *DocumentGate) MarkNotReady() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = DocumentStatus{}
}

// Ready reports whether grounded turns may be submitted.
func (g *DocumentGate) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status.Ready
}

// Status returns a consistent snapshot of the gate.
func (g *DocumentGate) Status() DocumentStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}
