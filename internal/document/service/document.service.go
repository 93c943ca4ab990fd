package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pagetree/internal/document/model"
	"pagetree/internal/document/repository"
	"pagetree/pkg/logger"
	"pagetree/pkg/metrics"
	"pagetree/socket"

	"github.com/google/uuid"
)

// Publisher receives change-feed events. *socket.Hub satisfies it.
type Publisher interface {
	Publish(msg socket.WSMessage)
}

type DocumentService struct {
	Repo repository.Store
	Hub  Publisher
	// Concurrency bounds the store calls a cascade issues in parallel.
	Concurrency int
}

func NewDocumentService(repo repository.Store, hub Publisher, concurrency int) *DocumentService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DocumentService{Repo: repo, Hub: hub, Concurrency: concurrency}
}

// requireCaller is the identity gate every operation passes first.
func requireCaller(callerID string) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// getOwned loads docID and checks that callerID owns it. Existence is checked
// before ownership.
func (s *DocumentService) getOwned(ctx context.Context, callerID, docID string) (*model.Document, error) {
	doc, err := s.Repo.Get(ctx, docID)
	if err != nil {
		return nil, storeError(err)
	}
	if doc.OwnerID != callerID {
		return nil, ErrUnauthorized
	}
	return doc, nil
}

func (s *DocumentService) CreateDocument(ctx context.Context, callerID, title string, parentID *string) (doc *model.Document, err error) {
	defer observe("create", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if parentID != nil {
		if *parentID == "" {
			parentID = nil
		} else if _, err := s.getOwned(ctx, callerID, *parentID); err != nil {
			return nil, fmt.Errorf("parent %s: %w", *parentID, err)
		}
	}

	doc = &model.Document{
		ID:               uuid.NewString(),
		Title:            title,
		OwnerID:          callerID,
		ParentDocumentID: parentID,
	}
	if err := s.Repo.Insert(ctx, doc); err != nil {
		return nil, storeError(err)
	}

	s.publish(socket.DocumentCreatedType, doc, nil)
	return doc, nil
}

// GetSidebar lists the caller's active documents directly under parentID,
// newest first. A nil parentID lists the root level.
func (s *DocumentService) GetSidebar(ctx context.Context, callerID string, parentID *string) (docs []model.Document, err error) {
	defer observe("sidebar", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	all, err := s.Repo.ListByOwnerParent(ctx, callerID, parentID)
	if err != nil {
		return nil, storeError(err)
	}

	docs = make([]model.Document, 0, len(all))
	for _, d := range all {
		if !d.IsArchived {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

// GetByID returns a published document to anyone. Unpublished documents are
// only returned to their owner.
func (s *DocumentService) GetByID(ctx context.Context, callerID, docID string) (doc *model.Document, err error) {
	defer observe("get", &err)

	doc, err = s.Repo.Get(ctx, docID)
	if err != nil {
		return nil, storeError(err)
	}
	if doc.IsPublished {
		return doc, nil
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if doc.OwnerID != callerID {
		return nil, ErrUnauthorized
	}
	return doc, nil
}

func (s *DocumentService) GetSearch(ctx context.Context, callerID string) (docs []model.Document, err error) {
	defer observe("search", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	docs, err = s.Repo.ListByOwner(ctx, callerID, false)
	return docs, storeError(err)
}

func (s *DocumentService) GetTrash(ctx context.Context, callerID string) (docs []model.Document, err error) {
	defer observe("trash", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	docs, err = s.Repo.ListByOwner(ctx, callerID, true)
	return docs, storeError(err)
}

func (s *DocumentService) UpdateDocument(ctx context.Context, callerID, docID string, req model.UpdateDocRequest) (doc *model.Document, err error) {
	defer observe("update", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	return s.patchOwned(ctx, callerID, docID, req.Patch())
}

func (s *DocumentService) RemoveIcon(ctx context.Context, callerID, docID string) (doc *model.Document, err error) {
	defer observe("remove_icon", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.patchOwned(ctx, callerID, docID, model.Patch{ClearIcon: true})
}

func (s *DocumentService) RemoveCoverImage(ctx context.Context, callerID, docID string) (doc *model.Document, err error) {
	defer observe("remove_cover", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.patchOwned(ctx, callerID, docID, model.Patch{ClearCoverImage: true})
}

func (s *DocumentService) patchOwned(ctx context.Context, callerID, docID string, patch model.Patch) (*model.Document, error) {
	if _, err := s.getOwned(ctx, callerID, docID); err != nil {
		return nil, err
	}
	doc, err := s.Repo.Patch(ctx, docID, patch)
	if err != nil {
		return nil, storeError(err)
	}
	s.publish(socket.DocumentUpdatedType, doc, nil)
	return doc, nil
}

// Archive soft-deletes docID and every descendant. It returns once the whole
// subtree is archived; a caller that disconnects midway does not stop it.
func (s *DocumentService) Archive(ctx context.Context, callerID, docID string) (doc *model.Document, err error) {
	defer observe("archive", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if _, err := s.getOwned(ctx, callerID, docID); err != nil {
		return nil, err
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	archived := true
	doc, err = s.Repo.Patch(ctx, docID, model.Patch{IsArchived: &archived})
	if err != nil {
		return nil, storeError(err)
	}
	s.publish(socket.DocumentArchivedType, doc, nil)

	if _, err := s.cascadePatch(ctx, doc, kindArchive, model.Patch{IsArchived: &archived}); err != nil {
		return nil, err
	}
	return doc, nil
}

// Restore un-archives docID and every descendant. When the parent is archived
// (or gone) the document is promoted to the root level.
func (s *DocumentService) Restore(ctx context.Context, callerID, docID string) (doc *model.Document, err error) {
	defer observe("restore", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	existing, err := s.getOwned(ctx, callerID, docID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	active := false
	patch := model.Patch{IsArchived: &active}
	if existing.ParentDocumentID != nil {
		orphan, err := s.parentBlocksRestore(ctx, existing)
		if err != nil {
			return nil, err
		}
		patch.ClearParent = orphan
	}

	doc, err = s.Repo.Patch(ctx, docID, patch)
	if err != nil {
		return nil, storeError(err)
	}
	s.publish(socket.DocumentRestoredType, doc, nil)

	if _, err := s.cascadePatch(ctx, doc, kindRestore, model.Patch{IsArchived: &active}); err != nil {
		return nil, err
	}
	return doc, nil
}

// parentBlocksRestore reports whether doc's stored parent link must be cleared
// on restore: the parent is archived, missing, or owned by someone else.
func (s *DocumentService) parentBlocksRestore(ctx context.Context, doc *model.Document) (bool, error) {
	parent, err := s.Repo.Get(ctx, *doc.ParentDocumentID)
	if errors.Is(err, repository.ErrNoDocument) {
		return true, nil
	}
	if err != nil {
		return false, storeError(err)
	}
	if parent.OwnerID != doc.OwnerID {
		logger.Sugar.Errorf("Document %s (owner %s) has parent %s owned by %s; detaching on restore",
			doc.ID, doc.OwnerID, parent.ID, parent.OwnerID)
		metrics.IntegrityViolations.Inc()
		return true, nil
	}
	return parent.IsArchived, nil
}

// RemoveDocument hard-deletes docID together with all of its descendants,
// deepest first, and returns the deleted record.
func (s *DocumentService) RemoveDocument(ctx context.Context, callerID, docID string) (doc *model.Document, err error) {
	defer observe("remove", &err)

	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	doc, err = s.getOwned(ctx, callerID, docID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	if _, err := s.cascadeDelete(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.Repo.Delete(ctx, docID); err != nil && !errors.Is(err, repository.ErrNoDocument) {
		return nil, storeError(err)
	}

	s.publish(socket.DocumentRemovedType, doc, nil)
	return doc, nil
}

func (s *DocumentService) publish(eventType string, doc *model.Document, payload any) {
	if s.Hub == nil {
		return
	}
	msg := socket.WSMessage{Type: eventType, DocID: doc.ID, UserID: doc.OwnerID}
	if payload == nil {
		payload = doc
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Sugar.Errorf("Failed to encode %s event for doc %s: %v", eventType, doc.ID, err)
		return
	}
	msg.Payload = raw
	s.Hub.Publish(msg)
}

func observe(operation string, errp *error) {
	metrics.Operations.WithLabelValues(operation, errorKind(*errp)).Inc()
}
