package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const documentColumns = `id, title, content, text, created_at, updated_at, version`

// PostgresDocumentStore implements IDocumentStore using PostgreSQL
type PostgresDocumentStore struct {
	db *sql.DB
}

// NewPostgresDocumentStore opens the database and makes sure the table exists
func NewPostgresDocumentStore(ctx context.Context, connStr string) (*PostgresDocumentStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresDocumentStore{db: db}

	if err := store.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *PostgresDocumentStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	doc := &Document{}
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Content,
		&doc.Text,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.Version,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresDocumentStore) CreateDocument(ctx context.Context, title, content, text string) (*Document, error) {
	id := uuid.New().String()
	now := time.Now()

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + documentColumns

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id, title, content, text, now, now, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return doc, nil
}

func (s *PostgresDocumentStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

func (s *PostgresDocumentStore) UpdateDocument(ctx context.Context, id string, updates *DocumentUpdate) (*Document, error) {
	sets := []string{}
	args := []any{}
	argPos := 1

	set := func(column string, value *string) {
		if value == nil {
			return
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, *value)
		argPos++
	}
	set("title", updates.Title)
	set("content", updates.Content)
	set("text", updates.Text)

	if len(sets) == 0 {
		return s.GetDocument(ctx, id)
	}

	// Always bump updated_at and version
	sets = append(sets, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now())
	argPos++
	sets = append(sets, "version = version + 1")

	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE documents
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argPos, documentColumns)

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	return doc, nil
}

func (s *PostgresDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

func (s *PostgresDocumentStore) ListDocuments(ctx context.Context) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	documents := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return documents, nil
}

// Compile-time check to ensure PostgresDocumentStore implements IDocumentStore
var _ IDocumentStore = (*PostgresDocumentStore)(nil)
