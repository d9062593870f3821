package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDocumentStore(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryDocumentStore()
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	a, err := s.CreateDocument(ctx, "a", "<p>a</p>", "a")
	require.NoError(t, err)
	b, err := s.CreateDocument(ctx, "b", "<p>b</p>", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Version)

	content, text := "<p>a2</p>", "a2"
	updated, err := s.UpdateDocument(ctx, a.ID, &DocumentUpdate{Content: &content, Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "a", updated.Title)
	assert.Equal(t, content, updated.Content)
	assert.Equal(t, 2, updated.Version)

	unchanged, err := s.UpdateDocument(ctx, a.ID, &DocumentUpdate{})
	require.NoError(t, err)
	assert.Equal(t, 2, unchanged.Version)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, a.ID, docs[0].ID)
	assert.Equal(t, b.ID, docs[1].ID)

	// returned documents are copies
	docs[0].Title = "changed"
	got, err := s.GetDocument(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)

	require.NoError(t, s.DeleteDocument(ctx, a.ID))
	_, err = s.GetDocument(ctx, a.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.ErrorIs(t, s.DeleteDocument(ctx, a.ID), ErrDocumentNotFound)
	_, err = s.UpdateDocument(ctx, a.ID, &DocumentUpdate{Content: &content})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
