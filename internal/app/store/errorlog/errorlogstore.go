// internal/app/store/errorlog/errorlogstore.go
package errorlog

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galleriahq/galleria/internal/domain/models"
)

// Store persists per-file scan failures so one broken file never takes down
// a scan, and operators can see what was skipped.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("scan_errors")}
}

// Record appends one scan error. A zero Time is stamped with now.
func (s *Store) Record(ctx context.Context, e models.ScanError) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// Recent returns the newest errors, most recent first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.ScanError, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "time", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ScanError
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PruneBefore deletes errors older than cutoff and reports how many went.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"time": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
