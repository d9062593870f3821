package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"rich-edit/pkg/db"
	"rich-edit/pkg/editor"
	"rich-edit/pkg/imagestore"
	"rich-edit/pkg/session"
)

// Handlers contains all HTTP and WebSocket handlers
type Handlers struct {
	sessions *session.Manager
	store    db.IDocumentStore
	// images backs the upload endpoint, nil disables it.
	images imagestore.Store
	log    *slog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(sessions *session.Manager, store db.IDocumentStore, images imagestore.Store, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		sessions: sessions,
		store:    store,
		images:   images,
		log:      log,
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r *mux.Router) {
	// WebSocket endpoint for editor sessions
	r.HandleFunc("/ws/{sessionId}", h.HandleWebSocket)

	r.HandleFunc("/api/documents", h.CreateDocument).Methods(http.MethodPost)
	r.HandleFunc("/api/documents", h.ListDocuments).Methods(http.MethodGet)
	r.HandleFunc("/api/documents/{id}", h.GetDocument).Methods(http.MethodGet)
	r.HandleFunc("/api/documents/{id}", h.DeleteDocument).Methods(http.MethodDelete)
	r.HandleFunc("/api/sessions/{sessionId}/users", h.GetSessionUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/upload-image", h.UploadImage).Methods(http.MethodPost)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CreateDocument stores a new document. Content goes through the editor so
// only canonical, sanitized markup is kept.
func (h *Handlers) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		req.Title = "Untitled"
	}

	ed, err := editor.New(editor.Options{Content: req.Content, Logger: h.log})
	if err != nil {
		http.Error(w, "Invalid content", http.StatusBadRequest)
		return
	}

	doc, err := h.store.CreateDocument(r.Context(), req.Title, ed.Content(), ed.TextContent())
	if err != nil {
		h.log.Error("create document", "error", err)
		http.Error(w, "Failed to create document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments returns a list of documents
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListDocuments(r.Context())
	if err != nil {
		h.log.Error("list documents", "error", err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// GetDocument retrieves a document by ID
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "Failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument deletes a document
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.DeleteDocument(r.Context(), id); err != nil {
		h.storeError(w, err, "Failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, db.ErrDocumentNotFound) {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	h.log.Error(msg, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

// GetSessionUsers returns the clients attached to a running session
func (h *Handlers) GetSessionUsers(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	s, ok := h.sessions.Get(sessionID)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  sessionID,
		"document_id": s.DocumentID,
		"users":       s.Users(),
	})
}
