package oztfix

import (
	"sync"

	"github.com/agentstation/oztfix/pkg/reconciler"
)

// Hook function types for document events
type (
	// DocumentSavedHook is called when a document is written or passed through
	DocumentSavedHook func(result *reconciler.Result)

	// TitleRejectedHook is called for every chapter or act without a record
	TitleRejectedHook func(documentID string, title reconciler.Title)

	// DocumentFailedHook is called when a document cannot be processed
	DocumentFailedHook func(path string, err error)
)

// hooks manages event callbacks for processed documents
type hooks struct {
	mu               sync.RWMutex
	onDocumentSaved  []DocumentSavedHook
	onTitleRejected  []TitleRejectedHook
	onDocumentFailed []DocumentFailedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnDocumentSaved registers a callback for documents written or passed through
func (h *hooks) OnDocumentSaved(fn DocumentSavedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDocumentSaved = append(h.onDocumentSaved, fn)
}

// OnTitleRejected registers a callback for false positive title candidates
func (h *hooks) OnTitleRejected(fn TitleRejectedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTitleRejected = append(h.onTitleRejected, fn)
}

// OnDocumentFailed registers a callback for documents that failed
func (h *hooks) OnDocumentFailed(fn DocumentFailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDocumentFailed = append(h.onDocumentFailed, fn)
}

// trigger fires the hooks that apply to a processed document
func (h *hooks) trigger(result *reconciler.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, title := range result.Titles {
		if title.Confirmed {
			continue
		}
		for _, hook := range h.onTitleRejected {
			hook(result.DocumentID, title)
		}
	}

	if result.IsSuccess() {
		for _, hook := range h.onDocumentSaved {
			hook(result)
		}
		return
	}
	for _, hook := range h.onDocumentFailed {
		hook(result.InputPath, result.Err)
	}
}
