package db

import (
	"context"
	"errors"
	"time"
)

var ErrDocumentNotFound = errors.New("document not found")

// Document is a stored rich-text document. Content is the canonical markup,
// Text its plain-text projection.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// IDocumentStore persists documents.
type IDocumentStore interface {
	CreateDocument(ctx context.Context, title, content, text string) (*Document, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	// UpdateDocument applies partial updates. Use pointer fields in DocumentUpdate
	// to indicate which fields should be modified.
	UpdateDocument(ctx context.Context, id string, updates *DocumentUpdate) (*Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context) ([]*Document, error)
}

// DocumentUpdate represents partial updates to a document. Pointer fields
// allow distinguishing between "not provided" (nil) and "set to empty".
type DocumentUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Text    *string `json:"text,omitempty"`
}
