// internal/app/features/api/types.go
package api

import (
	"github.com/galleriahq/galleria/internal/app/system/scan"
	"github.com/galleriahq/galleria/internal/domain/models"
)

// Request bodies.

type eventRequest struct {
	ItemID    string `json:"itemId"`
	Type      string `json:"type"`
	Value     string `json:"value,omitempty"`
	PageURL   string `json:"pageUrl,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

type removeEventRequest struct {
	ItemID    string `json:"itemId"`
	Type      string `json:"type"`
	UserEmail string `json:"userEmail"`
	EventID   string `json:"eventId,omitempty"` // required for comments
}

type upsertUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

type setCategoryRequest struct {
	Cat1 string `json:"cat1"`
	Cat2 string `json:"cat2"`
}

type setDescriptionRequest struct {
	Description string `json:"description"`
}

// Response envelopes. Every success payload embeds OK=true; failures go
// through jsonutil.Fail.

type listItemsResponse struct {
	OK      bool          `json:"ok"`
	Items   []models.Item `json:"items"`
	Page    int64         `json:"page"`
	Limit   int64         `json:"limit"`
	Total   int64         `json:"total"`
	HasMore bool          `json:"hasMore"`
}

type itemResponse struct {
	OK   bool        `json:"ok"`
	Item models.Item `json:"item"`
}

type categoriesResponse struct {
	OK         bool                  `json:"ok"`
	Categories []models.CategoryNode `json:"categories"`
}

type eventResponse struct {
	OK      bool   `json:"ok"`
	ID      string `json:"id,omitempty"`
	Deduped bool   `json:"deduped,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type timeline struct {
	Events     []models.Event `json:"events"`
	HasMore    bool           `json:"hasMore"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

type profileCounts struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

type profileResponse struct {
	OK       bool               `json:"ok"`
	Profile  models.UserProfile `json:"profile"`
	Counts   profileCounts      `json:"counts"`
	Likes    timeline           `json:"likes"`
	Comments timeline           `json:"comments"`
}

type userResponse struct {
	OK      bool               `json:"ok"`
	Profile models.UserProfile `json:"profile"`
}

type scanStartResponse struct {
	OK    bool   `json:"ok"`
	JobID string `json:"jobId"`
}

type scanStatusResponse struct {
	OK bool `json:"ok"`
	scan.Status
}
