package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is one row of the item index: the denormalized record for a single
// asset file in the library. The folder placement of the backing file is
// authoritative for Category1/Category2; the index is a derived cache that
// the reconciliation pass keeps in agreement with the tree.
type Item struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FileID string             `bson:"file_id"       json:"fileId"` // stable library file identifier
	Name   string             `bson:"name"          json:"name"`
	NameCI string             `bson:"name_ci"       json:"-"` // case/diacritic-insensitive sort key
	Slug   string             `bson:"slug"          json:"slug"`

	Category1 string `bson:"category1" json:"category1"`
	Category2 string `bson:"category2" json:"category2"`

	CDNURL      string `bson:"cdn_url"               json:"cdnUrl"`
	Width       int    `bson:"width"                 json:"width"`
	Height      int    `bson:"height"                json:"height"`
	Size        int64  `bson:"size"                  json:"size"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`

	Views    int64 `bson:"views"    json:"views"`
	Likes    int64 `bson:"likes"    json:"likes"`
	Comments int64 `bson:"comments" json:"comments"`

	// Signature is opaque change-detection state: file id + modification
	// time + parent folder id. Compared, never parsed.
	Signature string `bson:"signature" json:"-"`
}
