package db

import "context"

// createTable creates the documents table if it doesn't exist. Tables from
// before the text projection get the column added.
func (s *PostgresDocumentStore) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		content TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	ALTER TABLE documents ADD COLUMN IF NOT EXISTS text TEXT NOT NULL DEFAULT '';

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}
