package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"pagetree/internal/document/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "title", "content", "icon", "cover_image", "owner_id", "parent_document_id", "is_archived", "is_published", "created_at"}

func newMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDocumentRepository(db), mock
}

func row(id, owner string, parent driver.Value, archived bool, created time.Time) []driver.Value {
	return []driver.Value{id, "Title " + id, nil, nil, nil, owner, parent, archived, false, created}
}

func TestGet(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("doc-1", "Notes", "body", "📄", nil, "user-1", "doc-0", false, true, created))

	doc, err := repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "Notes", doc.Title)
	require.NotNil(t, doc.Content)
	assert.Equal(t, "body", *doc.Content)
	require.NotNil(t, doc.Icon)
	assert.Equal(t, "📄", *doc.Icon)
	assert.Nil(t, doc.CoverImage)
	require.NotNil(t, doc.ParentDocumentID)
	assert.Equal(t, "doc-0", *doc.ParentDocumentID)
	assert.True(t, doc.IsPublished)
	assert.Equal(t, created, doc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestInsertSetsCreatedAt(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs("doc-1", "Untitled", nil, nil, nil, "user-1", sqlmock.AnyArg(), false, false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	doc := &model.Document{ID: "doc-1", Title: "Untitled", OwnerID: "user-1"}
	require.NoError(t, repo.Insert(context.Background(), doc))
	assert.Equal(t, created, doc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchBuildsSetClause(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET title = $1, icon = NULL, is_archived = $2, parent_document_id = NULL WHERE id = $3 RETURNING")).
		WithArgs("Renamed", false, "doc-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row("doc-1", "user-1", nil, false, created)...))

	doc, err := repo.Patch(context.Background(), "doc-1", model.Patch{
		Title:       model.StringPtr("Renamed"),
		Icon:        model.StringPtr("ignored"),
		ClearIcon:   true,
		IsArchived:  model.BoolPtr(false),
		ClearParent: true,
	})
	require.NoError(t, err)
	assert.True(t, doc.IsRoot())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchMissing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET is_archived = $1 WHERE id = $2")).
		WithArgs(true, "ghost").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Patch(context.Background(), "ghost", model.Patch{IsArchived: model.BoolPtr(true)})
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestEmptyPatchReadsRow(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row("doc-1", "user-1", nil, false, time.Now())...))

	doc, err := repo.Patch(context.Background(), "doc-1", model.Patch{})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "doc-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "doc-1"), ErrNoDocument)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwnerParentRoot(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $1 AND parent_document_id IS NULL ORDER BY seq DESC")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(row("doc-2", "user-1", nil, false, now)...).
			AddRow(row("doc-1", "user-1", nil, true, now.Add(-time.Minute))...))

	docs, err := repo.ListByOwnerParent(context.Background(), "user-1", nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-2", docs[0].ID)
	assert.True(t, docs[1].IsArchived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwnerParentChild(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $1 AND parent_document_id = $2 ORDER BY seq DESC")).
		WithArgs("user-1", "doc-1").
		WillReturnRows(sqlmock.NewRows(columns))

	docs, err := repo.ListByOwnerParent(context.Background(), "user-1", model.StringPtr("doc-1"))
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NotNil(t, docs)
}

func TestListByOwner(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id = $1 AND is_archived = $2 ORDER BY seq DESC")).
		WithArgs("user-1", true).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row("doc-1", "user-1", "doc-0", true, time.Now())...))

	docs, err := repo.ListByOwner(context.Background(), "user-1", true)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-0", *docs[0].ParentDocumentID)
}

func TestListChildrenError(t *testing.T) {
	repo, mock := newMock(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE parent_document_id = $1 ORDER BY seq DESC")).
		WithArgs("doc-1").
		WillReturnError(boom)

	_, err := repo.ListChildren(context.Background(), "doc-1")
	assert.ErrorIs(t, err, boom)
}
