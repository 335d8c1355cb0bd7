// internal/app/store/items/itemstore.go
package itemstore

// The items collection is the tabular side of the gallery: one document per
// live library file. Folder placement stays authoritative for categories;
// the reconciliation pass keeps this collection converged with the tree.
//
// The store carries an in-process id/slug cache that is rebuilt lazily.
// Structural writes (insert, delete, category moves) invalidate the whole
// cache; single-column writes (counters, signature, description) patch the
// cached row in place.

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galleriahq/galleria/internal/app/store/storeutil"
	"github.com/galleriahq/galleria/internal/app/system/taxonomy"
	"github.com/galleriahq/galleria/internal/domain/models"
)

var (
	// ErrNotFound is returned when no item matches the lookup key.
	ErrNotFound = errors.New("item not found")
	// ErrDuplicateFileID is returned when creating an item whose file id
	// already has a row.
	ErrDuplicateFileID = errors.New("an item with this file id already exists")
)

// Counter column names accepted by IncrementCounter.
const (
	CounterViews    = "views"
	CounterLikes    = "likes"
	CounterComments = "comments"
)

// IsCounter reports whether name is a recognized counter column.
func IsCounter(name string) bool {
	switch name {
	case CounterViews, CounterLikes, CounterComments:
		return true
	}
	return false
}

type Store struct {
	c *mongo.Collection

	mu     sync.RWMutex
	byID   map[string]models.Item
	bySlug map[string]string // slug -> file_id
	loaded bool
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("items")}
}

/* -------------------------------------------------------------------------- */
/* Cache                                                                      */
/* -------------------------------------------------------------------------- */

// ensureCache loads the id/slug maps from the collection if they are stale.
func (s *Store) ensureCache(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var items []models.Item
	if err := cur.All(ctx, &items); err != nil {
		return err
	}

	s.byID = make(map[string]models.Item, len(items))
	s.bySlug = make(map[string]string, len(items))
	for _, it := range items {
		s.byID[it.FileID] = it
		s.bySlug[it.Slug] = it.FileID
	}
	s.loaded = true
	return nil
}

// Invalidate discards the in-process id/slug cache.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.byID = nil
	s.bySlug = nil
	s.mu.Unlock()
}

// patch applies fn to the cached row for fileID, if the cache is live.
// Used for single-column writes that do not justify a full rebuild.
func (s *Store) patch(fileID string, fn func(*models.Item)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}
	it, ok := s.byID[fileID]
	if !ok {
		return
	}
	fn(&it)
	s.byID[fileID] = it
}

/* -------------------------------------------------------------------------- */
/* Reads                                                                      */
/* -------------------------------------------------------------------------- */

// GetByFileID loads an item by its stable library file id.
func (s *Store) GetByFileID(ctx context.Context, fileID string) (*models.Item, error) {
	if err := s.ensureCache(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	it, ok := s.byID[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := it
	return &cp, nil
}

// GetBySlug loads an item by its slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.Item, error) {
	if err := s.ensureCache(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	fileID, ok := s.bySlug[slug]
	var it models.Item
	if ok {
		it = s.byID[fileID]
	}
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := it
	return &cp, nil
}

// ListAll returns every item sorted by folded name.
func (s *Store) ListAll(ctx context.Context) ([]models.Item, error) {
	opts := options.Find().SetSort(bson.M{"name_ci": 1})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.Item
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Snapshot reads the whole collection keyed by file id, bypassing the cache.
// The reconciliation pass works from this authoritative view and refreshes
// the cache as a side effect.
func (s *Store) Snapshot(ctx context.Context) (map[string]models.Item, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []models.Item
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}

	snap := make(map[string]models.Item, len(items))
	byID := make(map[string]models.Item, len(items))
	bySlug := make(map[string]string, len(items))
	for _, it := range items {
		snap[it.FileID] = it
		byID[it.FileID] = it
		bySlug[it.Slug] = it.FileID
	}

	s.mu.Lock()
	s.byID = byID
	s.bySlug = bySlug
	s.loaded = true
	s.mu.Unlock()

	return snap, nil
}

// ListInput selects and pages the item listing.
type ListInput struct {
	Search string
	Cat1   string
	Cat2   string
	Page   int64
	Limit  int64
}

// List returns one page of items plus the total match count.
func (s *Store) List(ctx context.Context, in ListInput) ([]models.Item, int64, error) {
	filter := bson.M{}
	if in.Search != "" {
		quoted := regexp.QuoteMeta(text.Fold(in.Search))
		filter["name_ci"] = primitive.Regex{Pattern: quoted}
	}
	if in.Cat1 != "" {
		filter["category1"] = in.Cat1
	}
	if in.Cat2 != "" {
		filter["category2"] = in.Cat2
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := storeutil.Paginate(in.Limit, in.Page).SetSort(bson.M{"name_ci": 1})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var items []models.Item
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

/* -------------------------------------------------------------------------- */
/* Writes                                                                     */
/* -------------------------------------------------------------------------- */

// Create inserts a fresh row for a newly discovered file. Name keys and slug
// are derived here; counters start at zero. A slug collision gets a suffix
// from the file id so both items stay addressable.
func (s *Store) Create(ctx context.Context, item models.Item) (models.Item, error) {
	item.ID = primitive.NewObjectID()
	item.NameCI = text.Fold(item.Name)
	if item.Slug == "" {
		item.Slug = taxonomy.SlugFromFilename(item.Name)
	}
	if item.Slug == "" {
		item.Slug = "item-" + item.FileID
	}

	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.Views, item.Likes, item.Comments = 0, 0, 0

	if _, err := s.c.InsertOne(ctx, item); err != nil {
		if !wafflemongo.IsDup(err) {
			return models.Item{}, err
		}
		// file_id collisions are a caller bug; slug collisions get a
		// disambiguating suffix and one retry.
		if exists, lookErr := s.fileIDExists(ctx, item.FileID); lookErr == nil && exists {
			return models.Item{}, ErrDuplicateFileID
		}
		item.Slug = item.Slug + "-" + item.FileID
		if _, err := s.c.InsertOne(ctx, item); err != nil {
			return models.Item{}, err
		}
	}

	s.Invalidate()
	return item, nil
}

func (s *Store) fileIDExists(ctx context.Context, fileID string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"file_id": fileID})
	return n > 0, err
}

// Upsert refreshes an item's metadata columns by file id, inserting the row
// if absent. Counter and description columns are preserved on update.
func (s *Store) Upsert(ctx context.Context, item models.Item) error {
	item.NameCI = text.Fold(item.Name)
	if item.Slug == "" {
		item.Slug = taxonomy.SlugFromFilename(item.Name)
	}
	now := time.Now()

	_, err := s.c.UpdateOne(ctx,
		bson.M{"file_id": item.FileID},
		bson.M{
			"$set": bson.M{
				"name":       item.Name,
				"name_ci":    item.NameCI,
				"slug":       item.Slug,
				"category1":  item.Category1,
				"category2":  item.Category2,
				"cdn_url":    item.CDNURL,
				"width":      item.Width,
				"height":     item.Height,
				"size":       item.Size,
				"signature":  item.Signature,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{
				"created_at": now,
				"views":      int64(0),
				"likes":      int64(0),
				"comments":   int64(0),
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// UpdateSignature touches only the change-detection column. Categories are
// deliberately not re-inferred here; those flow from explicit edits.
func (s *Store) UpdateSignature(ctx context.Context, fileID, signature string) error {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"file_id": fileID},
		bson.M{"$set": bson.M{"signature": signature, "updated_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.patch(fileID, func(it *models.Item) {
		it.Signature = signature
		it.UpdatedAt = now
	})
	return nil
}

// SetCategory records a category move: new placement columns, the file's new
// reference URL, and the post-move signature.
func (s *Store) SetCategory(ctx context.Context, fileID, cat1, cat2, cdnURL, signature string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"file_id": fileID},
		bson.M{"$set": bson.M{
			"category1":  cat1,
			"category2":  cat2,
			"cdn_url":    cdnURL,
			"signature":  signature,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.Invalidate()
	return nil
}

// SetDescription writes the free-text description column.
func (s *Store) SetDescription(ctx context.Context, fileID, description string) error {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"file_id": fileID},
		bson.M{"$set": bson.M{"description": description, "updated_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.patch(fileID, func(it *models.Item) {
		it.Description = description
		it.UpdatedAt = now
	})
	return nil
}

// IncrementCounter adjusts one counter column by delta. Decrements never
// take a counter below zero.
func (s *Store) IncrementCounter(ctx context.Context, fileID, counter string, delta int64) error {
	if !IsCounter(counter) {
		return errors.New("unknown counter: " + counter)
	}

	filter := bson.M{"file_id": fileID}
	if delta < 0 {
		filter[counter] = bson.M{"$gte": -delta}
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{counter: delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the item is gone or a decrement hit the floor; both are
		// resolved exactly by the next stats reconcile pass.
		return nil
	}
	s.patch(fileID, func(it *models.Item) {
		switch counter {
		case CounterViews:
			it.Views += delta
		case CounterLikes:
			it.Likes += delta
		case CounterComments:
			it.Comments += delta
		}
	})
	return nil
}

// SetCounters overwrites all three counter columns with exact values. Used
// by the stats reconcile pass.
func (s *Store) SetCounters(ctx context.Context, fileID string, views, likes, comments int64) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"file_id": fileID},
		bson.M{"$set": bson.M{
			"views":    views,
			"likes":    likes,
			"comments": comments,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.patch(fileID, func(it *models.Item) {
		it.Views, it.Likes, it.Comments = views, likes, comments
	})
	return nil
}

// Delete removes an item's row. Returns the number of documents deleted
// (0 or 1).
func (s *Store) Delete(ctx context.Context, fileID string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"file_id": fileID})
	if err != nil {
		return 0, err
	}
	if res.DeletedCount > 0 {
		s.Invalidate()
	}
	return res.DeletedCount, nil
}
