package service

import (
	"context"
	"sync"

	"pagetree/internal/document/model"
	"pagetree/internal/document/repository"
	"pagetree/socket"
)

// flakyStore wraps the in-memory repository and can fail patches on demand.
// Like a database driver, it refuses work on a cancelled context.
type flakyStore struct {
	*repository.MemoryRepository

	mu sync.Mutex
	// failPatchAfter makes Patch fail once this many patches succeeded (0 = never).
	failPatchAfter int
	patches        int
	// afterPatch, if set, runs after every successful patch.
	afterPatch func()
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryRepository: repository.NewMemoryRepository()}
}

func (f *flakyStore) Patch(ctx context.Context, id string, p model.Patch) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.failPatchAfter > 0 && f.patches >= f.failPatchAfter {
		f.mu.Unlock()
		return nil, errStoreDown
	}
	f.patches++
	hook := f.afterPatch
	f.mu.Unlock()

	doc, err := f.MemoryRepository.Patch(ctx, id, p)
	if err == nil && hook != nil {
		hook()
	}
	return doc, err
}

func (f *flakyStore) ListChildren(ctx context.Context, parentID string) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.MemoryRepository.ListChildren(ctx, parentID)
}

func (f *flakyStore) setAfterPatch(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afterPatch = fn
}

func (f *flakyStore) setFailPatchAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPatchAfter = n
	f.patches = 0
}

// put stores doc as-is, bypassing service validation.
func (f *flakyStore) put(doc model.Document) {
	_ = f.Insert(context.Background(), &doc)
}

type recordingHub struct {
	mu     sync.Mutex
	events []socket.WSMessage
}

func (h *recordingHub) Publish(msg socket.WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, msg)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}
