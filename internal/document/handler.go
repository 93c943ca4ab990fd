package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"pagetree/internal/document/model"
	"pagetree/internal/document/service"
	"pagetree/middleware"
	"pagetree/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type DocumentHandler struct {
	Service  *service.DocumentService
	validate *validator.Validate
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateDocRequest
	if !h.decode(w, r, &req) {
		return
	}

	doc, err := h.Service.CreateDocument(r.Context(), middleware.CallerID(r.Context()), req.Title, req.ParentDocumentID)
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) GetSidebar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var parentID *string
	if p := r.URL.Query().Get("parentDocumentId"); p != "" {
		parentID = &p
	}

	docs, err := h.Service.GetSidebar(r.Context(), middleware.CallerID(r.Context()), parentID)
	if err != nil {
		writeError(w, "get sidebar", err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) GetSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docs, err := h.Service.GetSearch(r.Context(), middleware.CallerID(r.Context()))
	if err != nil {
		writeError(w, "get search", err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) GetTrash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docs, err := h.Service.GetTrash(r.Context(), middleware.CallerID(r.Context()))
	if err != nil {
		writeError(w, "get trash", err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetDocument serves both owners and anonymous readers of published documents.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	docID, ok := docIDParam(w, r)
	if !ok {
		return
	}

	doc, err := h.Service.GetByID(r.Context(), middleware.CallerID(r.Context()), docID)
	if err != nil {
		writeError(w, "get document "+docID, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	docID, ok := docIDParam(w, r)
	if !ok {
		return
	}

	var req model.UpdateDocRequest
	if !h.decode(w, r, &req) {
		return
	}

	doc, err := h.Service.UpdateDocument(r.Context(), middleware.CallerID(r.Context()), docID, req)
	if err != nil {
		writeError(w, "update document "+docID, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) ArchiveDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.MethodPut, "archive", h.Service.Archive)
}

func (h *DocumentHandler) RestoreDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.MethodPut, "restore", h.Service.Restore)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.MethodDelete, "delete", h.Service.RemoveDocument)
}

func (h *DocumentHandler) RemoveIcon(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.MethodDelete, "remove icon of", h.Service.RemoveIcon)
}

func (h *DocumentHandler) RemoveCoverImage(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.MethodDelete, "remove cover of", h.Service.RemoveCoverImage)
}

type docOperation func(ctx context.Context, callerID, docID string) (*model.Document, error)

// transition handles the endpoints that take only a docId and return the
// affected document.
func (h *DocumentHandler) transition(w http.ResponseWriter, r *http.Request, method, action string, op docOperation) {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	docID, ok := docIDParam(w, r)
	if !ok {
		return
	}

	doc, err := op(r.Context(), middleware.CallerID(r.Context()), docID)
	if err != nil {
		writeError(w, action+" document "+docID, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func docIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return "", false
	}
	return docID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Handler: Failed to encode response: %v", err)
	}
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	}

	if status >= http.StatusInternalServerError {
		logger.Sugar.Errorf("Handler: Failed to %s: %v", action, err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}
