package model

import "time"

// Document is a single page in a user's tree. A nil ParentDocumentID marks a
// root-level page.
type Document struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Content          *string   `json:"content,omitempty"`
	Icon             *string   `json:"icon,omitempty"`
	CoverImage       *string   `json:"coverImage,omitempty"`
	OwnerID          string    `json:"ownerId"`
	ParentDocumentID *string   `json:"parentDocumentId,omitempty"`
	IsArchived       bool      `json:"isArchived"`
	IsPublished      bool      `json:"isPublished"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (d *Document) IsRoot() bool {
	return d.ParentDocumentID == nil
}

// Patch is a partial update. Nil fields are left untouched.
// ClearParent, ClearIcon and ClearCoverImage set the column to NULL and take
// precedence over the matching value field.
type Patch struct {
	Title       *string
	Content     *string
	Icon        *string
	CoverImage  *string
	IsArchived  *bool
	IsPublished *bool

	ClearParent     bool
	ClearIcon       bool
	ClearCoverImage bool
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Icon == nil && p.CoverImage == nil &&
		p.IsArchived == nil && p.IsPublished == nil &&
		!p.ClearParent && !p.ClearIcon && !p.ClearCoverImage
}

type CreateDocRequest struct {
	Title            string  `json:"title" validate:"required"`
	ParentDocumentID *string `json:"parentDocumentId,omitempty"`
}

// UpdateDocRequest carries the client-editable fields. Absent fields are not changed.
type UpdateDocRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Content     *string `json:"content,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	CoverImage  *string `json:"coverImage,omitempty"`
	IsPublished *bool   `json:"isPublished,omitempty"`
}

func (r UpdateDocRequest) Patch() Patch {
	return Patch{
		Title:       r.Title,
		Content:     r.Content,
		Icon:        r.Icon,
		CoverImage:  r.CoverImage,
		IsPublished: r.IsPublished,
	}
}

func StringPtr(s string) *string { return &s }

func BoolPtr(b bool) *bool { return &b }
