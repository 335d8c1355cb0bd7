// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/galleriahq/galleria/internal/app/system/normalize"
	"github.com/galleriahq/galleria/internal/domain/models"
)

var (
	// ErrNotFound is returned when no profile exists for an email.
	ErrNotFound = errors.New("user not found")
	// ErrEmptyEmail is returned when an upsert arrives without an email.
	ErrEmptyEmail = errors.New("email is required")
)

// Store is the email-keyed profile directory. There is no registration step:
// the first request that mentions an email creates the profile.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// UpsertInput carries the profile fields a touch may refresh.
type UpsertInput struct {
	Email    string
	Name     string
	PhotoURL string
}

// Upsert creates or refreshes the profile for in.Email. LastLogin always
// moves forward; name and photo are taken only when non-empty, so a sparse
// touch never erases data a richer one wrote earlier.
func (s *Store) Upsert(ctx context.Context, in UpsertInput) (models.UserProfile, error) {
	email := normalize.Email(in.Email)
	if email == "" {
		return models.UserProfile{}, ErrEmptyEmail
	}
	now := time.Now().UTC()

	set := bson.M{"last_login": now}
	if name := normalize.Name(in.Name); name != "" {
		set["name"] = name
	}
	if in.PhotoURL != "" {
		set["photo_url"] = in.PhotoURL
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"email":      email,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var profile models.UserProfile
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&profile); err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

// Touch refreshes LastLogin for an email, creating the profile if needed.
func (s *Store) Touch(ctx context.Context, email string) (models.UserProfile, error) {
	return s.Upsert(ctx, UpsertInput{Email: email})
}

// GetByEmail fetches a profile by its normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

// Count returns the number of known profiles.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
