package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserProfile is an email-keyed profile record. Profiles are upsert-only:
// every touch refreshes LastLogin, and name/photo are updated
// opportunistically but never cleared by a touch that omits them.
type UserProfile struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"       json:"-"`
	Email     string             `bson:"email"               json:"email"` // normalized: trimmed, lower-cased
	Name      string             `bson:"name,omitempty"      json:"name,omitempty"`
	PhotoURL  string             `bson:"photo_url,omitempty" json:"photoUrl,omitempty"`
	CreatedAt time.Time          `bson:"created_at"          json:"createdAt"`
	LastLogin time.Time          `bson:"last_login"          json:"lastLogin"`
}
