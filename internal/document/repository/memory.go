package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pagetree/internal/document/model"
)

// MemoryRepository is a process-local Store for development and tests.
// Lists are ordered by insertion, newest first.
type MemoryRepository struct {
	mu   sync.Mutex
	docs map[string]*memoryRow
	seq  int64
	now  func() time.Time
}

type memoryRow struct {
	doc model.Document
	seq int64
}

var _ Store = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]*memoryRow), now: time.Now}
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.docs[id]
	if !ok {
		return nil, ErrNoDocument
	}
	doc := cloneDocument(row.doc)
	return &doc, nil
}

// Insert stores doc as given and stamps CreatedAt.
func (m *MemoryRepository) Insert(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	doc.CreatedAt = m.now().UTC()
	m.docs[doc.ID] = &memoryRow{doc: cloneDocument(*doc), seq: m.seq}
	return nil
}

func (m *MemoryRepository) Patch(_ context.Context, id string, p model.Patch) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.docs[id]
	if !ok {
		return nil, ErrNoDocument
	}
	d := &row.doc
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Content != nil {
		d.Content = copyString(p.Content)
	}
	if p.ClearIcon {
		d.Icon = nil
	} else if p.Icon != nil {
		d.Icon = copyString(p.Icon)
	}
	if p.ClearCoverImage {
		d.CoverImage = nil
	} else if p.CoverImage != nil {
		d.CoverImage = copyString(p.CoverImage)
	}
	if p.IsArchived != nil {
		d.IsArchived = *p.IsArchived
	}
	if p.IsPublished != nil {
		d.IsPublished = *p.IsPublished
	}
	if p.ClearParent {
		d.ParentDocumentID = nil
	}
	doc := cloneDocument(*d)
	return &doc, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return ErrNoDocument
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryRepository) ListByOwner(_ context.Context, ownerID string, archived bool) ([]model.Document, error) {
	return m.list(func(d *model.Document) bool {
		return d.OwnerID == ownerID && d.IsArchived == archived
	}), nil
}

func (m *MemoryRepository) ListByOwnerParent(_ context.Context, ownerID string, parentID *string) ([]model.Document, error) {
	return m.list(func(d *model.Document) bool {
		if d.OwnerID != ownerID {
			return false
		}
		if parentID == nil {
			return d.ParentDocumentID == nil
		}
		return d.ParentDocumentID != nil && *d.ParentDocumentID == *parentID
	}), nil
}

func (m *MemoryRepository) ListChildren(_ context.Context, parentID string) ([]model.Document, error) {
	return m.list(func(d *model.Document) bool {
		return d.ParentDocumentID != nil && *d.ParentDocumentID == parentID
	}), nil
}

func (m *MemoryRepository) list(match func(*model.Document) bool) []model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hits []*memoryRow
	for _, row := range m.docs {
		if match(&row.doc) {
			hits = append(hits, row)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq > hits[j].seq })

	docs := make([]model.Document, 0, len(hits))
	for _, row := range hits {
		docs = append(docs, cloneDocument(row.doc))
	}
	return docs
}

func cloneDocument(d model.Document) model.Document {
	cp := d
	cp.Content = copyString(d.Content)
	cp.Icon = copyString(d.Icon)
	cp.CoverImage = copyString(d.CoverImage)
	cp.ParentDocumentID = copyString(d.ParentDocumentID)
	return cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
