package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"pagetree/internal/document/model"
	"pagetree/internal/document/repository"
	"pagetree/pkg/logger"
	"pagetree/pkg/metrics"
	"pagetree/socket"

	"golang.org/x/sync/errgroup"
)

// cascadeTimeout bounds a detached mutation once it has started.
const cascadeTimeout = 2 * time.Minute

const (
	kindArchive = "archive"
	kindRestore = "restore"
	kindRemove  = "remove"
)

// detach keeps a subtree mutation running after the caller goes away, so the
// target and its descendants never end up in different states.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cascadeTimeout)
}

// descendants walks the subtree under root breadth-first and returns the ids
// of every descendant grouped by depth (levels[0] are root's children).
//
// Children are looked up by parent only and re-checked against root's owner;
// a child owned by someone else is skipped together with its subtree.
func (s *DocumentService) descendants(ctx context.Context, root *model.Document) ([][]string, error) {
	visited := map[string]bool{root.ID: true}
	frontier := []string{root.ID}
	var levels [][]string

	for len(frontier) > 0 {
		var (
			mu    sync.Mutex
			found []model.Document
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.Concurrency)
		for _, parentID := range frontier {
			g.Go(func() error {
				children, err := s.Repo.ListChildren(gctx, parentID)
				if err != nil {
					return err
				}
				mu.Lock()
				found = append(found, children...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, storeError(err)
		}

		var next []string
		for _, child := range found {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			if child.OwnerID != root.OwnerID {
				logger.Sugar.Errorf("Cascade from %s skipped child %s: owner %s does not match %s",
					root.ID, child.ID, child.OwnerID, root.OwnerID)
				metrics.IntegrityViolations.Inc()
				continue
			}
			next = append(next, child.ID)
		}
		if len(next) > 0 {
			levels = append(levels, next)
		}
		frontier = next
	}
	return levels, nil
}

// cascadePatch applies patch to every descendant of root, one depth level at
// a time, and waits for all of it. A descendant deleted mid-walk is ignored.
func (s *DocumentService) cascadePatch(ctx context.Context, root *model.Document, kind string, patch model.Patch) (int, error) {
	start := time.Now()

	levels, err := s.descendants(ctx, root)
	if err != nil {
		logger.Sugar.Errorf("%s cascade from %s failed while walking: %v", kind, root.ID, err)
		return 0, err
	}

	total := 0
	for _, level := range levels {
		err := s.forEach(ctx, level, func(ctx context.Context, id string) error {
			_, err := s.Repo.Patch(ctx, id, patch)
			return err
		})
		if err != nil {
			logger.Sugar.Errorf("%s cascade from %s stopped after %d descendants: %v", kind, root.ID, total, err)
			return total, storeError(err)
		}
		total += len(level)
	}

	s.finishCascade(root, kind, total, start)
	return total, nil
}

// cascadeDelete deletes every descendant of root, deepest level first, so no
// remaining row ever points at a deleted parent. root itself is left in place.
func (s *DocumentService) cascadeDelete(ctx context.Context, root *model.Document) (int, error) {
	start := time.Now()

	levels, err := s.descendants(ctx, root)
	if err != nil {
		logger.Sugar.Errorf("remove cascade from %s failed while walking: %v", root.ID, err)
		return 0, err
	}

	total := 0
	for i := len(levels) - 1; i >= 0; i-- {
		err := s.forEach(ctx, levels[i], func(ctx context.Context, id string) error {
			return s.Repo.Delete(ctx, id)
		})
		if err != nil {
			logger.Sugar.Errorf("remove cascade from %s stopped after %d descendants: %v", root.ID, total, err)
			return total, storeError(err)
		}
		total += len(levels[i])
	}

	s.finishCascade(root, kindRemove, total, start)
	return total, nil
}

// forEach runs fn over ids with bounded parallelism. ErrNoDocument from fn is
// treated as success.
func (s *DocumentService) forEach(ctx context.Context, ids []string, fn func(context.Context, string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := fn(gctx, id); err != nil && !errors.Is(err, repository.ErrNoDocument) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *DocumentService) finishCascade(root *model.Document, kind string, total int, start time.Time) {
	metrics.CascadeNodes.WithLabelValues(kind).Add(float64(total))
	metrics.CascadeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	logger.Sugar.Infof("%s cascade from %s finished: %d descendants in %s", kind, root.ID, total, time.Since(start))

	s.publish(socket.CascadeCompleteType, root, socket.CascadePayload{Kind: kind, Descendants: total})
}
