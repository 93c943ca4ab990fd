package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pagetree/internal/document/model"
	"pagetree/pkg/logger"
)

// ErrNoDocument is returned when an id does not resolve to a stored row.
var ErrNoDocument = errors.New("document does not exist")

// Store is the document persistence contract: point lookup, insert, partial
// patch, delete, and the owner / owner+parent / parent indexes. Every list is
// ordered newest first.
type Store interface {
	Get(ctx context.Context, id string) (*model.Document, error)
	Insert(ctx context.Context, doc *model.Document) error
	Patch(ctx context.Context, id string, patch model.Patch) (*model.Document, error)
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, archived bool) ([]model.Document, error)
	ListByOwnerParent(ctx context.Context, ownerID string, parentID *string) ([]model.Document, error)
	ListChildren(ctx context.Context, parentID string) ([]model.Document, error)
}

const documentColumns = `id, title, content, icon, cover_image, owner_id, parent_document_id, is_archived, is_published, created_at`

type DocumentRepository struct {
	DB *sql.DB
}

var _ Store = (*DocumentRepository)(nil)

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Get(ctx context.Context, id string) (*model.Document, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get document %s: %v", id, err)
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) Insert(ctx context.Context, doc *model.Document) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO documents (id, title, content, icon, cover_image, owner_id, parent_document_id, is_archived, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		doc.ID, doc.Title, doc.Content, doc.Icon, doc.CoverImage, doc.OwnerID, doc.ParentDocumentID, doc.IsArchived, doc.IsPublished,
	).Scan(&doc.CreatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
	}
	return err
}

// Patch applies the non-nil fields of patch and returns the updated row.
func (r *DocumentRepository) Patch(ctx context.Context, id string, patch model.Patch) (*model.Document, error) {
	if patch.IsEmpty() {
		return r.Get(ctx, id)
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Content != nil {
		set("content", *patch.Content)
	}
	if patch.ClearIcon {
		sets = append(sets, "icon = NULL")
	} else if patch.Icon != nil {
		set("icon", *patch.Icon)
	}
	if patch.ClearCoverImage {
		sets = append(sets, "cover_image = NULL")
	} else if patch.CoverImage != nil {
		set("cover_image", *patch.CoverImage)
	}
	if patch.IsArchived != nil {
		set("is_archived", *patch.IsArchived)
	}
	if patch.IsPublished != nil {
		set("is_published", *patch.IsPublished)
	}
	if patch.ClearParent {
		sets = append(sets, "parent_document_id = NULL")
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE documents SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), documentColumns)

	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to patch document %s: %v", id, err)
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete doc %s: %v", id, err)
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoDocument
	}
	return nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string, archived bool) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE owner_id = $1 AND is_archived = $2
		ORDER BY seq DESC`, ownerID, archived)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for user %s: %v", ownerID, err)
		return nil, err
	}
	return collect(rows)
}

// ListByOwnerParent lists the owner's documents directly under parentID.
// A nil parentID lists root-level documents.
func (r *DocumentRepository) ListByOwnerParent(ctx context.Context, ownerID string, parentID *string) ([]model.Document, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == nil {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT `+documentColumns+` FROM documents
			WHERE owner_id = $1 AND parent_document_id IS NULL
			ORDER BY seq DESC`, ownerID)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT `+documentColumns+` FROM documents
			WHERE owner_id = $1 AND parent_document_id = $2
			ORDER BY seq DESC`, ownerID, *parentID)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to list children for user %s: %v", ownerID, err)
		return nil, err
	}
	return collect(rows)
}

// ListChildren lists every direct child of parentID regardless of owner.
func (r *DocumentRepository) ListChildren(ctx context.Context, parentID string) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE parent_document_id = $1
		ORDER BY seq DESC`, parentID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list children of doc %s: %v", parentID, err)
		return nil, err
	}
	return collect(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*model.Document, error) {
	var (
		doc                            model.Document
		content, icon, cover, parentID sql.NullString
	)
	err := s.Scan(&doc.ID, &doc.Title, &content, &icon, &cover, &doc.OwnerID, &parentID,
		&doc.IsArchived, &doc.IsPublished, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	doc.Content = nullable(content)
	doc.Icon = nullable(icon)
	doc.CoverImage = nullable(cover)
	doc.ParentDocumentID = nullable(parentID)
	return &doc, nil
}

func collect(rows *sql.Rows) ([]model.Document, error) {
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			logger.Sugar.Errorf("Failed to scan document row: %v", err)
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		logger.Sugar.Errorf("Failed to iterate document rows: %v", err)
		return nil, err
	}
	return docs, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
