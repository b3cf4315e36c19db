package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/ender-tasks/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func repositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"sqlite": NewSQLiteRepository(setupDB(t)),
		"memory": NewMemoryRepository(),
	}
}

func TestRepository_Contract(t *testing.T) {
	for name, r := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			v, err := r.Get(ctx, KeyAuthToken)
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, r.Set(ctx, KeyAuthToken, []byte("old")))
			require.NoError(t, r.Set(ctx, KeyAuthToken, []byte("new")))
			v, err = r.Get(ctx, KeyAuthToken)
			require.NoError(t, err)
			assert.Equal(t, []byte("new"), v)

			require.NoError(t, r.Set(ctx, KeyTasks, []byte("[]")))
			require.NoError(t, r.Delete(ctx, KeyAuthToken))
			require.NoError(t, r.Delete(ctx, KeyAuthToken))
			v, err = r.Get(ctx, KeyAuthToken)
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, r.Clear(ctx))
			v, err = r.Get(ctx, KeyTasks)
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestSQLiteRepository_ErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM metadata`).WithArgs(KeyTasks).WillReturnError(boom)
	_, err = r.Get(ctx, KeyTasks)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to get tasks")

	mock.ExpectExec(`INSERT INTO metadata`).WithArgs(KeyTasks, []byte("[]")).WillReturnError(boom)
	err = r.Set(ctx, KeyTasks, []byte("[]"))
	require.ErrorIs(t, err, boom)

	mock.ExpectExec(`DELETE FROM metadata WHERE key`).WithArgs(KeyTasks).WillReturnError(boom)
	require.ErrorIs(t, r.Delete(ctx, KeyTasks), boom)

	mock.ExpectExec(`DELETE FROM metadata`).WillReturnError(boom)
	require.ErrorIs(t, r.Clear(ctx), boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepository_CopiesValues(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, r.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}
