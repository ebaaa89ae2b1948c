package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/agenticqa/runner/internal/data/pgxutil"
	"github.com/agenticqa/runner/internal/domain/model"
)

// TestRepo reads stored test definitions. The CRUD surface that writes them
// is a separate service sharing the same tables.
type TestRepo struct {
	DB *sql.DB
}

// NewTestRepo creates a TestRepo.
func NewTestRepo(db *sql.DB) *TestRepo {
	return &TestRepo{DB: db}
}

// GetByID retrieves a test by id, or model.ErrTestNotFound.
func (r *TestRepo) GetByID(ctx context.Context, testID string) (*model.Test, error) {
	var test model.Test
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var definitionJSON []byte
		row := conn.QueryRow(ctx,
			`SELECT id, name, url, definition FROM tests WHERE id = $1`, testID)
		if err := row.Scan(&test.ID, &test.Name, &test.URL, &definitionJSON); err != nil {
			return err
		}
		if len(definitionJSON) > 0 {
			if err := json.Unmarshal(definitionJSON, &test.Definition); err != nil {
				return fmt.Errorf("decode test definition: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTestNotFound
		}
		return nil, fmt.Errorf("get test by id: %w", err)
	}
	return &test, nil
}

// Exists reports whether a test with the given id exists.
func (r *TestRepo) Exists(ctx context.Context, testID string) (bool, error) {
	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM tests WHERE id = $1)`, testID).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("check test exists: %w", err)
	}
	return exists, nil
}
