package db

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDocumentStore keeps documents in process. It backs the server when
// no database is configured, and the tests.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
	now  func() time.Time
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]*Document), now: time.Now}
}

func (s *MemoryDocumentStore) CreateDocument(_ context.Context, title, content, text string) (*Document, error) {
	now := s.now()
	doc := &Document{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()

	copied := *doc
	return &copied, nil
}

func (s *MemoryDocumentStore) GetDocument(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *MemoryDocumentStore) UpdateDocument(ctx context.Context, id string, updates *DocumentUpdate) (*Document, error) {
	if updates.Title == nil && updates.Content == nil && updates.Text == nil {
		return s.GetDocument(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	if updates.Title != nil {
		doc.Title = *updates.Title
	}
	if updates.Content != nil {
		doc.Content = *updates.Content
	}
	if updates.Text != nil {
		doc.Text = *updates.Text
	}
	doc.UpdatedAt = s.now()
	doc.Version++

	copied := *doc
	return &copied, nil
}

func (s *MemoryDocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(s.docs, id)
	return nil
}

// ListDocuments returns the most recently updated documents first.
func (s *MemoryDocumentStore) ListDocuments(_ context.Context) ([]*Document, error) {
	s.mu.RLock()
	documents := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		copied := *doc
		documents = append(documents, &copied)
	}
	s.mu.RUnlock()

	slices.SortFunc(documents, func(a, b *Document) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return documents, nil
}

var _ IDocumentStore = (*MemoryDocumentStore)(nil)
