// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galleriahq/galleria/internal/app/store/storeutil"
	"github.com/galleriahq/galleria/internal/app/system/htmlsanitize"
	"github.com/galleriahq/galleria/internal/app/system/normalize"
	"github.com/galleriahq/galleria/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
)

var (
	// ErrNotFound is returned when no matching event exists.
	ErrNotFound = errors.New("event not found")
	// ErrNotOwner is returned when a caller tries to remove someone else's event.
	ErrNotOwner = errors.New("event belongs to another user")
	// ErrEmptyComment is returned when a comment is empty after sanitization.
	ErrEmptyComment = errors.New("comment is empty")
)

// Counts holds the per-type event totals for one item.
type Counts struct {
	Views    int64
	Likes    int64
	Comments int64
}

// Store persists the engagement event log. Rows are soft-deleted so history
// survives un-likes and comment removals.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// UpsertLike records a like for (itemID, email). Liking an already-liked item
// is reported as deduped; a previously removed like is revived in place so the
// unique index keeps one row per pair forever.
func (s *Store) UpsertLike(ctx context.Context, itemID, email, pageURL string) (primitive.ObjectID, bool, error) {
	email = normalize.Email(email)
	id, deduped, err := s.upsertLike(ctx, itemID, email, pageURL)
	if wafflemongo.IsDup(err) {
		// Lost an insert race against the partial unique index. The winning
		// row exists now, so a second pass resolves against it.
		id, deduped, err = s.upsertLike(ctx, itemID, email, pageURL)
	}
	return id, deduped, err
}

func (s *Store) upsertLike(ctx context.Context, itemID, email, pageURL string) (primitive.ObjectID, bool, error) {
	filter := bson.M{"item_id": itemID, "user_email": email, "type": models.EventLike}

	var existing models.Event
	err := s.c.FindOne(ctx, filter).Decode(&existing)
	switch {
	case err == nil && !existing.Deleted:
		return existing.ID, true, nil
	case err == nil:
		// Revive the soft-deleted row.
		now := time.Now().UTC()
		_, err := s.c.UpdateByID(ctx, existing.ID, bson.M{"$set": bson.M{
			"deleted":    false,
			"page_url":   pageURL,
			"updated_at": now,
		}})
		if err != nil {
			return primitive.NilObjectID, false, err
		}
		return existing.ID, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		now := time.Now().UTC()
		ev := models.Event{
			ID:        primitive.NewObjectID(),
			ItemID:    itemID,
			Type:      models.EventLike,
			Value:     models.LikeValue,
			PageURL:   pageURL,
			UserEmail: email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.c.InsertOne(ctx, ev); err != nil {
			return primitive.NilObjectID, false, err
		}
		return ev.ID, false, nil
	default:
		return primitive.NilObjectID, false, err
	}
}

// AddView appends a view event. Views are append-only and never deduplicated.
func (s *Store) AddView(ctx context.Context, itemID, email, pageURL string) (primitive.ObjectID, error) {
	now := time.Now().UTC()
	ev := models.Event{
		ID:        primitive.NewObjectID(),
		ItemID:    itemID,
		Type:      models.EventView,
		PageURL:   pageURL,
		UserEmail: normalize.Email(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, ev); err != nil {
		return primitive.NilObjectID, err
	}
	return ev.ID, nil
}

// AddComment appends a comment event. The text is sanitized before storage;
// a comment that sanitizes to nothing is rejected.
func (s *Store) AddComment(ctx context.Context, itemID, email, pageURL, text string) (models.Event, error) {
	clean := htmlsanitize.Comment(text)
	if clean == "" {
		return models.Event{}, ErrEmptyComment
	}
	now := time.Now().UTC()
	ev := models.Event{
		ID:        primitive.NewObjectID(),
		ItemID:    itemID,
		Type:      models.EventComment,
		Value:     clean,
		PageURL:   pageURL,
		UserEmail: normalize.Email(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, ev); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// RemoveLike soft-deletes the caller's like on an item.
func (s *Store) RemoveLike(ctx context.Context, itemID, email string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"item_id":    itemID,
		"user_email": normalize.Email(email),
		"type":       models.EventLike,
		"deleted":    false,
	}, bson.M{"$set": bson.M{
		"deleted":    true,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveComment soft-deletes a comment by id, but only for its author.
func (s *Store) RemoveComment(ctx context.Context, eventID primitive.ObjectID, email string) (models.Event, error) {
	var ev models.Event
	err := s.c.FindOne(ctx, bson.M{
		"_id":     eventID,
		"type":    models.EventComment,
		"deleted": false,
	}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, err
	}
	if ev.UserEmail != normalize.Email(email) {
		return models.Event{}, ErrNotOwner
	}

	_, err = s.c.UpdateByID(ctx, ev.ID, bson.M{"$set": bson.M{
		"deleted":    true,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return models.Event{}, err
	}
	ev.Deleted = true
	return ev, nil
}

// HasLiked reports whether the user has a live like on the item.
func (s *Store) HasLiked(ctx context.Context, itemID, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"item_id":    itemID,
		"user_email": normalize.Email(email),
		"type":       models.EventLike,
		"deleted":    false,
	})
	return n > 0, err
}

// ListComments returns an item's live comments, oldest first.
func (s *Store) ListComments(ctx context.Context, itemID string) ([]models.Event, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"item_id": itemID,
		"type":    models.EventComment,
		"deleted": false,
	}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Event
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUserPaged returns one page of a user's live events of the given type,
// newest first. A non-zero before bounds the page to events strictly older.
// It returns up to limit+1 rows trimmed to limit, with a hasMore flag.
func (s *Store) ListByUserPaged(ctx context.Context, email, eventType string, before time.Time, limit int64) ([]models.Event, bool, error) {
	limit, _ = storeutil.Clamp(limit, 1)

	// Partially-written rows (missing item id or timestamp) are excluded in
	// the query itself so a page always fills to limit while older complete
	// events exist and hasMore stays truthful.
	createdAt := bson.M{"$gt": time.Time{}}
	if !before.IsZero() {
		createdAt["$lt"] = before
	}
	filter := bson.M{
		"user_email": normalize.Email(email),
		"type":       eventType,
		"deleted":    false,
		"item_id":    bson.M{"$gt": ""},
		"created_at": createdAt,
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit + 1)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	var rows []models.Event
	if err := cur.All(ctx, &rows); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(rows)) > limit
	if hasMore {
		rows = rows[:limit]
	}
	return rows, hasMore, nil
}

// CountByUser counts a user's live events of one type.
func (s *Store) CountByUser(ctx context.Context, email, eventType string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"user_email": normalize.Email(email),
		"type":       eventType,
		"deleted":    false,
	})
}

// Stats computes the live event totals for one item.
func (s *Store) Stats(ctx context.Context, itemID string) (Counts, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"item_id": itemID, "deleted": false}},
		{"$group": bson.M{
			"_id":   "$type",
			"count": bson.M{"$sum": 1},
		}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Counts{}, err
	}
	defer cur.Close(ctx)

	var counts Counts
	for cur.Next(ctx) {
		var row struct {
			Type  string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return Counts{}, err
		}
		counts.add(row.Type, row.Count)
	}
	return counts, cur.Err()
}

// CountsForAll computes live event totals for every item that has any events,
// keyed by item file id. Items with no events are simply absent.
func (s *Store) CountsForAll(ctx context.Context) (map[string]Counts, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"deleted": false}},
		{"$group": bson.M{
			"_id":   bson.M{"item_id": "$item_id", "type": "$type"},
			"count": bson.M{"$sum": 1},
		}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]Counts)
	for cur.Next(ctx) {
		var row struct {
			Key struct {
				ItemID string `bson:"item_id"`
				Type   string `bson:"type"`
			} `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		c := out[row.Key.ItemID]
		c.add(row.Key.Type, row.Count)
		out[row.Key.ItemID] = c
	}
	return out, cur.Err()
}

func (c *Counts) add(eventType string, n int64) {
	switch eventType {
	case models.EventView:
		c.Views += n
	case models.EventLike:
		c.Likes += n
	case models.EventComment:
		c.Comments += n
	}
}
