package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticqa/runner/internal/domain/model"
	"github.com/agenticqa/runner/internal/testutil"
)

func TestTestRepoGetByID(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTestRepo(db)
		testID := insertTest(t, db, "login flow")

		test, err := repo.GetByID(ctx, testID)
		require.NoError(t, err)
		assert.Equal(t, testID, test.ID)
		assert.Equal(t, "login flow", test.Name)
		assert.Equal(t, "https://example.com", test.URL)
		require.Len(t, test.Definition.Steps, 2)
		assert.Equal(t, model.ActionNavigate, test.Definition.Steps[0].Action)
	})
}

func TestTestRepoGetByIDNotFound(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewTestRepo(db)
		_, err := repo.GetByID(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, model.ErrTestNotFound)
	})
}

func TestTestRepoExists(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewTestRepo(db)
		testID := insertTest(t, db, "exists")

		exists, err := repo.Exists(ctx, testID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Exists(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
