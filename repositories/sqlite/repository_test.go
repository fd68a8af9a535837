package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/gradebook/models"
	"github.com/campusops/gradebook/repositories"
	"github.com/campusops/gradebook/repositories/dbtx"
)

func TestStudentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewStudentRepository(db, zap.NewNop())

	student := models.NewStudent("Alice", 90)
	require.NoError(t, repo.Create(ctx, student))
	assert.Greater(t, student.ID, int64(0))

	got, err := repo.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, 90, got.Grade)
	assert.WithinDuration(t, student.CreatedAt, got.CreatedAt, time.Second)
	assert.Nil(t, got.DeletedAt)
}

func TestStudentRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewStudentRepository(db, zap.NewNop())

	got, err := repo.GetByID(ctx, 999)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestStudentRepository_Update(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewStudentRepository(db, zap.NewNop())

	student := models.NewStudent("Alice", 90)
	require.NoError(t, repo.Create(ctx, student))

	student.Grade = 95
	student.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, student))

	got, err := repo.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 95, got.Grade)

	t.Run("missing student", func(t *testing.T) {
		ghost := &models.Student{ID: 999, Name: "Ghost", UpdatedAt: time.Now().UTC()}
		assert.ErrorIs(t, repo.Update(ctx, ghost), repositories.ErrNotFound)
	})
}

func TestStudentRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewStudentRepository(db, zap.NewNop())

	student := models.NewStudent("Alice", 90)
	require.NoError(t, repo.Create(ctx, student))

	student.MarkDeleted(time.Now().UTC())
	require.NoError(t, repo.SoftDelete(ctx, student))

	// Deleted students are invisible to reads
	_, err := repo.GetByID(ctx, student.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	list, err := repo.List(ctx, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	// But the row itself is retained
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM students WHERE id = ?", student.ID).Scan(&count))
	assert.Equal(t, 1, count)

	t.Run("second delete is not found", func(t *testing.T) {
		assert.ErrorIs(t, repo.SoftDelete(ctx, student), repositories.ErrNotFound)
	})
}

func TestStudentRepository_List(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewStudentRepository(db, zap.NewNop())

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		require.NoError(t, repo.Create(ctx, models.NewStudent(name, 80)))
	}

	got, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "Bob", got[1].Name)

	rest, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "Carol", rest[0].Name)
}

func TestAuditLogRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	students := NewStudentRepository(db, zap.NewNop())
	logs := NewAuditLogRepository(db, zap.NewNop())

	alice := models.NewStudent("Alice", 90)
	require.NoError(t, students.Create(ctx, alice))
	bob := models.NewStudent("Bob", 85)
	require.NoError(t, students.Create(ctx, bob))

	base := time.Now().UTC()
	first := models.NewAuditEntry(alice.ID, models.ActionInsert, base).WithNewData(alice)
	second := models.NewAuditEntry(bob.ID, models.ActionInsert, base.Add(time.Second)).WithNewData(bob)
	third := models.NewAuditEntry(alice.ID, models.ActionUpdate, base.Add(2*time.Second)).
		WithOldData(alice).
		WithNewData(&models.Student{ID: alice.ID, Name: "Alice", Grade: 95})

	for _, entry := range []*models.AuditEntry{first, second, third} {
		require.NoError(t, logs.Append(ctx, entry))
	}

	t.Run("get by id round-trips snapshots", func(t *testing.T) {
		got, err := logs.GetByID(ctx, third.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ActionUpdate, got.Action)
		assert.JSONEq(t, `{"name":"Alice","grade":90}`, string(got.OldData))
		assert.JSONEq(t, `{"name":"Alice","grade":95}`, string(got.NewData))
	})

	t.Run("get by id not found", func(t *testing.T) {
		_, err := logs.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("list by student is oldest first", func(t *testing.T) {
		got, err := logs.ListByStudent(ctx, alice.ID, 50, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, models.ActionInsert, got[0].Action)
		assert.Nil(t, got[0].OldData, "insert entries have no before image")
		assert.JSONEq(t, `{"name":"Alice","grade":90}`, string(got[0].NewData))
		assert.Equal(t, models.ActionUpdate, got[1].Action)
		assert.True(t, !got[1].RecordedAt.Before(got[0].RecordedAt))
	})

	t.Run("list recent is newest first", func(t *testing.T) {
		got, err := logs.ListRecent(ctx, 50, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, third.ID, got[0].ID)
	})

	t.Run("list by action filters", func(t *testing.T) {
		got, err := logs.ListByAction(ctx, models.ActionInsert, 50, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, entry := range got {
			assert.Equal(t, models.ActionInsert, entry.Action)
		}
	})

	t.Run("count", func(t *testing.T) {
		count, err := logs.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestAuditLogRepository_ForeignKeyEnforced(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	logs := NewAuditLogRepository(db, zap.NewNop())

	entry := models.NewAuditEntry(999, models.ActionInsert, time.Now().UTC())
	err := logs.Append(ctx, entry)
	require.Error(t, err, "entries must reference an existing student")
}

func TestRepositories_InTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	students := NewStudentRepository(db, zap.NewNop())
	logs := NewAuditLogRepository(db, zap.NewNop())
	manager := dbtx.NewManager(db.DB, zap.NewNop())

	t.Run("commit persists both writes", func(t *testing.T) {
		var id int64
		err := manager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
			student := models.NewStudent("Alice", 90)
			if err := students.Create(txCtx, student); err != nil {
				return err
			}
			id = student.ID
			entry := models.NewAuditEntry(student.ID, models.ActionInsert, time.Now().UTC()).WithNewData(student)
			return logs.Append(txCtx, entry)
		})
		require.NoError(t, err)

		_, err = students.GetByID(ctx, id)
		assert.NoError(t, err)

		count, err := logs.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("error rolls back both writes", func(t *testing.T) {
		before, err := logs.Count(ctx)
		require.NoError(t, err)

		err = manager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
			student := models.NewStudent("Bob", 85)
			if err := students.Create(txCtx, student); err != nil {
				return err
			}
			entry := models.NewAuditEntry(student.ID, models.ActionInsert, time.Now().UTC()).WithNewData(student)
			if err := logs.Append(txCtx, entry); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		after, err := logs.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		list, err := students.List(ctx, 50, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Alice", list[0].Name)
	})
}
