// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is applied when a caller passes a non-positive page size.
const DefaultLimit = 20

// MaxLimit caps page sizes so a single request cannot pull the whole table.
const MaxLimit = 200

// Clamp normalizes a requested limit/page pair to sane values (1-based page).
func Clamp(limit, page int64) (int64, int64) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page <= 0 {
		page = 1
	}
	return limit, page
}

// Paginate returns *options.FindOptions with skip/limit given a 1-based page.
func Paginate(limit, page int64) *options.FindOptions {
	limit, page = Clamp(limit, page)
	sk := (page - 1) * limit
	return options.Find().SetLimit(limit).SetSkip(sk)
}

// ParseCursor decodes an opaque timeline cursor (an RFC 3339 timestamp).
// An empty or malformed cursor reads as "no cursor": start from the newest.
func ParseCursor(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatCursor encodes a timestamp as an opaque timeline cursor.
func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
