package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScanError is a diagnostics row written when processing of a single file
// fails during a reconciliation pass. The pass itself continues.
type ScanError struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"     json:"-"`
	Time    time.Time          `bson:"time"              json:"time"`
	JobID   string             `bson:"job_id"            json:"jobId"`
	ItemID  string             `bson:"item_id,omitempty" json:"itemId,omitempty"`
	Message string             `bson:"message"           json:"message"`
	Stack   string             `bson:"stack,omitempty"   json:"-"`
}
