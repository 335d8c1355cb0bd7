package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types recorded in the event log.
const (
	EventView    = "view"
	EventLike    = "like"
	EventComment = "comment"
)

// LikeValue is the sentinel stored in Value for like events.
const LikeValue = "♥"

// Event is one user interaction with an item. Likes and comments are
// soft-deleted (Deleted=true) so history survives; views are append-only
// and never deleted.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"        json:"id"`
	ItemID    string             `bson:"item_id"              json:"itemId"` // Item.FileID
	Type      string             `bson:"type"                 json:"type"`
	Value     string             `bson:"value,omitempty"      json:"value,omitempty"`
	PageURL   string             `bson:"page_url,omitempty"   json:"pageUrl,omitempty"`
	UserEmail string             `bson:"user_email,omitempty" json:"userEmail,omitempty"`
	CreatedAt time.Time          `bson:"created_at"           json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at"           json:"updatedAt"`
	Deleted   bool               `bson:"deleted"              json:"-"`
}

// IsValidEventType reports whether t is one of the known event types.
func IsValidEventType(t string) bool {
	switch t {
	case EventView, EventLike, EventComment:
		return true
	}
	return false
}

// Complete reports whether the event carries the fields activity views
// depend on. Partially-written rows are filtered out of read paths.
func (e *Event) Complete() bool {
	return e.ItemID != "" && e.Type != "" && !e.CreatedAt.IsZero()
}
