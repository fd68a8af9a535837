package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/gradebook/models"
	"github.com/campusops/gradebook/repositories"
)

func newTestDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return &DB{DB: mockDB, logger: zap.NewNop()}, mock
}

func studentRows(students ...*models.Student) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "grade", "created_at", "updated_at", "deleted_at"})
	for _, s := range students {
		rows.AddRow(s.ID, s.Name, s.Grade, s.CreatedAt, s.UpdatedAt, s.DeletedAt)
	}
	return rows
}

func TestStudentRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns storage id", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		student := models.NewStudent("Alice", 90)

		mock.ExpectQuery("INSERT INTO students").
			WithArgs("Alice", 90, student.CreatedAt, student.UpdatedAt).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

		err := repo.Create(ctx, student)
		require.NoError(t, err)
		assert.Equal(t, int64(1), student.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps storage errors", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		mock.ExpectQuery("INSERT INTO students").
			WillReturnError(sql.ErrConnDone)

		err := repo.Create(ctx, models.NewStudent("Alice", 90))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create student")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStudentRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns student", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		now := time.Now().UTC()
		want := &models.Student{ID: 1, Name: "Alice", Grade: 90, CreatedAt: now, UpdatedAt: now}

		mock.ExpectQuery("SELECT id, name, grade, created_at, updated_at, deleted_at FROM students").
			WithArgs(int64(1)).
			WillReturnRows(studentRows(want))

		got, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, 90, got.Grade)
		assert.Nil(t, got.DeletedAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT id, name, grade, created_at, updated_at, deleted_at FROM students").
			WithArgs(int64(999)).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetByID(ctx, 999)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStudentRepository_GetByIDForUpdate(t *testing.T) {
	ctx := context.Background()

	db, mock := newTestDB(t)
	repo := NewStudentRepository(db, zap.NewNop())

	now := time.Now().UTC()
	want := &models.Student{ID: 1, Name: "Alice", Grade: 90, CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(studentRows(want))

	got, err := repo.GetByIDForUpdate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("returns students in id order", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		now := time.Now().UTC()
		alice := &models.Student{ID: 1, Name: "Alice", Grade: 90, CreatedAt: now, UpdatedAt: now}
		bob := &models.Student{ID: 2, Name: "Bob", Grade: 85, CreatedAt: now, UpdatedAt: now}

		mock.ExpectQuery("SELECT id, name, grade, created_at, updated_at, deleted_at FROM students").
			WithArgs(50, 0).
			WillReturnRows(studentRows(alice, bob))

		got, err := repo.List(ctx, 50, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Alice", got[0].Name)
		assert.Equal(t, "Bob", got[1].Name)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty roster", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT id, name, grade, created_at, updated_at, deleted_at FROM students").
			WithArgs(50, 0).
			WillReturnRows(studentRows())

		got, err := repo.List(ctx, 50, 0)
		require.NoError(t, err)
		assert.Empty(t, got)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStudentRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates row", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		student := &models.Student{ID: 1, Name: "Alice", Grade: 95, UpdatedAt: time.Now().UTC()}

		mock.ExpectExec("UPDATE students").
			WithArgs(int64(1), "Alice", 95, student.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(ctx, student)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found when no rows affected", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		student := &models.Student{ID: 999, Name: "Ghost", Grade: 0, UpdatedAt: time.Now().UTC()}

		mock.ExpectExec("UPDATE students").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, student)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStudentRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps deleted_at", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		now := time.Now().UTC()
		student := &models.Student{ID: 1, Name: "Alice", Grade: 90}
		student.MarkDeleted(now)

		mock.ExpectExec("UPDATE students").
			WithArgs(int64(1), student.DeletedAt, student.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SoftDelete(ctx, student)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found for already deleted row", func(t *testing.T) {
		db, mock := newTestDB(t)
		repo := NewStudentRepository(db, zap.NewNop())

		student := &models.Student{ID: 1, Name: "Alice", Grade: 90}
		student.MarkDeleted(time.Now().UTC())

		mock.ExpectExec("UPDATE students").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SoftDelete(ctx, student)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
