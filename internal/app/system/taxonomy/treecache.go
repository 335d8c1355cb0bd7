package taxonomy

import (
	"context"
	"sync"

	"github.com/galleriahq/galleria/internal/domain/models"
)

// BuildFunc produces the legal category tree from the live folder structure.
type BuildFunc func(ctx context.Context) ([]models.CategoryNode, error)

// TreeCache memoizes the two-level category tree. The reconciliation pass and
// category edits call Invalidate after changing the folder structure; the
// next Get rebuilds.
type TreeCache struct {
	build BuildFunc

	mu    sync.Mutex
	tree  []models.CategoryNode
	valid bool
}

// NewTreeCache creates a cache around the given builder.
func NewTreeCache(build BuildFunc) *TreeCache {
	return &TreeCache{build: build}
}

// Get returns the cached tree, rebuilding it if it has been invalidated.
// Callers must not mutate the returned nodes.
func (c *TreeCache) Get(ctx context.Context) ([]models.CategoryNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid {
		return c.tree, nil
	}
	tree, err := c.build(ctx)
	if err != nil {
		return nil, err
	}
	c.tree = tree
	c.valid = true
	return tree, nil
}

// Invalidate discards the cached tree so the next Get rebuilds it.
func (c *TreeCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.tree = nil
	c.mu.Unlock()
}
