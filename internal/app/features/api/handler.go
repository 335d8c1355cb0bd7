// Package api implements the JSON action API: item browsing, engagement
// events, user profiles, item edits, and scan control. One action per route,
// every response in the ok/error envelope.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	eventstore "github.com/galleriahq/galleria/internal/app/store/events"
	itemstore "github.com/galleriahq/galleria/internal/app/store/items"
	"github.com/galleriahq/galleria/internal/app/store/storeutil"
	userstore "github.com/galleriahq/galleria/internal/app/store/users"
	"github.com/galleriahq/galleria/internal/app/system/jsonutil"
	"github.com/galleriahq/galleria/internal/app/system/library"
	"github.com/galleriahq/galleria/internal/app/system/locks"
	"github.com/galleriahq/galleria/internal/app/system/normalize"
	"github.com/galleriahq/galleria/internal/app/system/scan"
	"github.com/galleriahq/galleria/internal/app/system/stats"
	"github.com/galleriahq/galleria/internal/app/system/taxonomy"
	"github.com/galleriahq/galleria/internal/domain/models"
)

// Handler serves the action API.
type Handler struct {
	items   *itemstore.Store
	events  *eventstore.Store
	users   *userstore.Store
	stats   *stats.Aggregator
	engine  *scan.Engine
	tree    library.Tree
	tax     *taxonomy.TreeCache
	locks   *locks.Service
	logger  *zap.Logger
	cdnBase string
}

func NewHandler(
	items *itemstore.Store,
	events *eventstore.Store,
	users *userstore.Store,
	agg *stats.Aggregator,
	engine *scan.Engine,
	tree library.Tree,
	tax *taxonomy.TreeCache,
	lockSvc *locks.Service,
	cdnBase string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		items:   items,
		events:  events,
		users:   users,
		stats:   agg,
		engine:  engine,
		tree:    tree,
		tax:     tax,
		locks:   lockSvc,
		logger:  logger,
		cdnBase: strings.TrimRight(cdnBase, "/"),
	}
}

/* ------------------------------- items ---------------------------------- */

// ListItems handles GET /api/items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := itemstore.ListInput{
		Search: normalize.QueryParam(q.Get("search")),
		Cat1:   normalize.Category(q.Get("cat1")),
		Cat2:   normalize.Category(q.Get("cat2")),
		Page:   parseInt(q.Get("page"), 1),
		Limit:  parseInt(q.Get("limit"), storeutil.DefaultLimit),
	}

	items, total, err := h.items.List(r.Context(), in)
	if err != nil {
		h.logger.Error("items.list failed", zap.Error(err))
		jsonutil.InternalError(w, "could not list items")
		return
	}

	limit, page := storeutil.Clamp(in.Limit, in.Page)
	if items == nil {
		items = []models.Item{}
	}
	jsonutil.OK(w, listItemsResponse{
		OK:      true,
		Items:   items,
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: page*limit < total,
	})
}

// ItemBySlug handles GET /api/items/{slug}.
func (h *Handler) ItemBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	item, err := h.items.GetBySlug(r.Context(), slug)
	if errors.Is(err, itemstore.ErrNotFound) {
		jsonutil.NotFound(w, "item not found")
		return
	}
	if err != nil {
		h.logger.Error("item.bySlug failed", zap.String("slug", slug), zap.Error(err))
		jsonutil.InternalError(w, "could not load item")
		return
	}
	jsonutil.OK(w, itemResponse{OK: true, Item: *item})
}

// Categories handles GET /api/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	tree, err := h.tax.Get(r.Context())
	if err != nil {
		h.logger.Error("categories.tree failed", zap.Error(err))
		jsonutil.InternalError(w, "could not load categories")
		return
	}
	if tree == nil {
		tree = []models.CategoryNode{}
	}
	jsonutil.OK(w, categoriesResponse{OK: true, Categories: tree})
}

/* ------------------------------- events --------------------------------- */

// UpsertEvent handles POST /api/events.
func (h *Handler) UpsertEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	req.Type = normalize.EventType(req.Type)
	req.UserEmail = normalize.Email(req.UserEmail)

	if req.ItemID == "" {
		jsonutil.BadRequest(w, "itemId is required")
		return
	}
	if !models.IsValidEventType(req.Type) {
		jsonutil.BadRequest(w, "unknown event type")
		return
	}
	if req.Type != models.EventView && req.UserEmail == "" {
		jsonutil.BadRequest(w, "userEmail is required for "+req.Type+" events")
		return
	}

	ctx := r.Context()
	if _, err := h.items.GetByFileID(ctx, req.ItemID); err != nil {
		if errors.Is(err, itemstore.ErrNotFound) {
			jsonutil.NotFound(w, "item not found")
			return
		}
		h.logger.Error("event.upsert item lookup failed", zap.Error(err))
		jsonutil.InternalError(w, "could not record event")
		return
	}

	// Serialize writers per item so concurrent likes on the same item
	// cannot race the counter bump; different items proceed in parallel.
	release, err := h.locks.AcquireItem(ctx, req.ItemID)
	if err != nil {
		jsonutil.Unavailable(w, "item is busy, try again")
		return
	}
	defer release()

	var resp eventResponse
	switch req.Type {
	case models.EventLike:
		id, deduped, err := h.events.UpsertLike(ctx, req.ItemID, req.UserEmail, req.PageURL)
		if err != nil {
			h.logger.Error("event.upsert like failed", zap.Error(err))
			jsonutil.InternalError(w, "could not record like")
			return
		}
		resp = eventResponse{OK: true, ID: id.Hex(), Deduped: deduped}
		if !deduped {
			h.bumpCounter(ctx, req.ItemID, models.EventLike, 1)
		}

	case models.EventComment:
		ev, err := h.events.AddComment(ctx, req.ItemID, req.UserEmail, req.PageURL, req.Value)
		if errors.Is(err, eventstore.ErrEmptyComment) {
			jsonutil.BadRequest(w, "comment is empty")
			return
		}
		if err != nil {
			h.logger.Error("event.upsert comment failed", zap.Error(err))
			jsonutil.InternalError(w, "could not record comment")
			return
		}
		resp = eventResponse{OK: true, ID: ev.ID.Hex()}
		h.bumpCounter(ctx, req.ItemID, models.EventComment, 1)

	case models.EventView:
		id, err := h.events.AddView(ctx, req.ItemID, req.UserEmail, req.PageURL)
		if err != nil {
			h.logger.Error("event.upsert view failed", zap.Error(err))
			jsonutil.InternalError(w, "could not record view")
			return
		}
		resp = eventResponse{OK: true, ID: id.Hex()}
		h.bumpCounter(ctx, req.ItemID, models.EventView, 1)
	}

	// Any event with an email keeps the profile directory warm.
	if req.UserEmail != "" {
		if _, err := h.users.Touch(ctx, req.UserEmail); err != nil {
			h.logger.Warn("profile touch failed", zap.String("email", req.UserEmail), zap.Error(err))
		}
	}

	jsonutil.OK(w, resp)
}

// RemoveEvent handles POST /api/events/remove.
func (h *Handler) RemoveEvent(w http.ResponseWriter, r *http.Request) {
	var req removeEventRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	req.Type = normalize.EventType(req.Type)
	req.UserEmail = normalize.Email(req.UserEmail)

	if req.UserEmail == "" {
		jsonutil.BadRequest(w, "userEmail is required")
		return
	}

	ctx := r.Context()
	switch req.Type {
	case models.EventLike:
		if req.ItemID == "" {
			jsonutil.BadRequest(w, "itemId is required")
			return
		}
		release, err := h.locks.AcquireItem(ctx, req.ItemID)
		if err != nil {
			jsonutil.Unavailable(w, "item is busy, try again")
			return
		}
		defer release()

		if err := h.events.RemoveLike(ctx, req.ItemID, req.UserEmail); err != nil {
			if errors.Is(err, eventstore.ErrNotFound) {
				jsonutil.NotFound(w, "like not found")
				return
			}
			h.logger.Error("event.remove like failed", zap.Error(err))
			jsonutil.InternalError(w, "could not remove like")
			return
		}
		h.bumpCounter(ctx, req.ItemID, models.EventLike, -1)

	case models.EventComment:
		eventID, err := primitive.ObjectIDFromHex(req.EventID)
		if err != nil {
			jsonutil.BadRequest(w, "eventId is required for comment removal")
			return
		}
		ev, err := h.events.RemoveComment(ctx, eventID, req.UserEmail)
		if errors.Is(err, eventstore.ErrNotFound) {
			jsonutil.NotFound(w, "comment not found")
			return
		}
		if errors.Is(err, eventstore.ErrNotOwner) {
			jsonutil.Forbidden(w, "comment belongs to another user")
			return
		}
		if err != nil {
			h.logger.Error("event.remove comment failed", zap.Error(err))
			jsonutil.InternalError(w, "could not remove comment")
			return
		}
		h.bumpCounter(ctx, ev.ItemID, models.EventComment, -1)

	default:
		// Views are append-only history; like/comment are the only
		// removable types.
		jsonutil.BadRequest(w, "events of this type cannot be removed")
		return
	}

	jsonutil.OK(w, okResponse{OK: true})
}

// bumpCounter applies an incremental counter change, logging rather than
// failing the request: the periodic reconcile makes counters exact.
func (h *Handler) bumpCounter(ctx context.Context, itemID, eventType string, delta int64) {
	if err := h.stats.Bump(ctx, itemID, eventType, delta); err != nil {
		h.logger.Warn("counter bump failed",
			zap.String("item_id", itemID),
			zap.String("type", eventType),
			zap.Int64("delta", delta),
			zap.Error(err))
	}
}

/* ------------------------------- users ---------------------------------- */

// UserProfile handles GET /api/users/profile.
func (h *Handler) UserProfile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := normalize.Email(q.Get("email"))
	if email == "" {
		jsonutil.BadRequest(w, "email is required")
		return
	}
	limit := parseInt(q.Get("limit"), storeutil.DefaultLimit)

	ctx := r.Context()
	profile, err := h.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		jsonutil.NotFound(w, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("user.profile lookup failed", zap.Error(err))
		jsonutil.InternalError(w, "could not load profile")
		return
	}

	likes, err := h.timelinePage(ctx, email, models.EventLike, q.Get("likesCursor"), limit)
	if err != nil {
		h.logger.Error("user.profile likes timeline failed", zap.Error(err))
		jsonutil.InternalError(w, "could not load profile")
		return
	}
	comments, err := h.timelinePage(ctx, email, models.EventComment, q.Get("commentsCursor"), limit)
	if err != nil {
		h.logger.Error("user.profile comments timeline failed", zap.Error(err))
		jsonutil.InternalError(w, "could not load profile")
		return
	}

	likeCount, err := h.events.CountByUser(ctx, email, models.EventLike)
	if err != nil {
		h.logger.Error("user.profile like count failed", zap.Error(err))
		jsonutil.InternalError(w, "could not load profile")
		return
	}
	commentCount, err := h.events.CountByUser(ctx, email, models.EventComment)
	if err != nil {
		h.logger.Error("user.profile comment count failed", zap.Error(err))
		jsonutil.InternalError(w, "could not load profile")
		return
	}

	jsonutil.OK(w, profileResponse{
		OK:       true,
		Profile:  profile,
		Counts:   profileCounts{Likes: likeCount, Comments: commentCount},
		Likes:    likes,
		Comments: comments,
	})
}

// timelinePage loads one cursor page of a user's events of one type.
func (h *Handler) timelinePage(ctx context.Context, email, eventType, cursor string, limit int64) (timeline, error) {
	before, _ := storeutil.ParseCursor(cursor)
	events, hasMore, err := h.events.ListByUserPaged(ctx, email, eventType, before, limit)
	if err != nil {
		return timeline{}, err
	}
	if events == nil {
		events = []models.Event{}
	}
	tl := timeline{Events: events, HasMore: hasMore}
	if hasMore {
		tl.NextCursor = storeutil.FormatCursor(events[len(events)-1].CreatedAt)
	}
	return tl, nil
}

// UpsertUser handles POST /api/users.
func (h *Handler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	profile, err := h.users.Upsert(r.Context(), userstore.UpsertInput{
		Email:    req.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
	})
	if errors.Is(err, userstore.ErrEmptyEmail) {
		jsonutil.BadRequest(w, "email is required")
		return
	}
	if err != nil {
		h.logger.Error("user.upsert failed", zap.Error(err))
		jsonutil.InternalError(w, "could not save profile")
		return
	}
	jsonutil.OK(w, userResponse{OK: true, Profile: profile})
}

/* ----------------------------- item edits ------------------------------- */

// SetCategory handles POST /api/items/{slug}/category. The table edit flows
// back to the tree: the backing file moves into the target folder chain.
func (h *Handler) SetCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req setCategoryRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}
	cat1 := normalize.Category(req.Cat1)
	cat2 := normalize.Category(req.Cat2)
	if cat1 == "" {
		jsonutil.BadRequest(w, "cat1 is required")
		return
	}

	ctx := r.Context()
	item, err := h.items.GetBySlug(ctx, slug)
	if errors.Is(err, itemstore.ErrNotFound) {
		jsonutil.NotFound(w, "item not found")
		return
	}
	if err != nil {
		h.logger.Error("item.setCategory lookup failed", zap.Error(err))
		jsonutil.InternalError(w, "could not load item")
		return
	}

	// Folder moves are multi-step and not atomic: same exclusion as the scan.
	release, err := h.locks.AcquireGlobal(ctx)
	if err != nil {
		jsonutil.Unavailable(w, "library is busy, try again")
		return
	}
	defer release()

	file, err := h.tree.FindByID(ctx, item.FileID)
	if errors.Is(err, library.ErrNotFound) {
		jsonutil.NotFound(w, "backing file not found")
		return
	}
	if err != nil {
		h.logger.Error("item.setCategory file lookup failed", zap.Error(err))
		jsonutil.InternalError(w, "could not locate file")
		return
	}

	dst, err := h.tree.EnsurePath(ctx, cat1, cat2)
	if errors.Is(err, library.ErrBadName) {
		jsonutil.BadRequest(w, "invalid category name")
		return
	}
	if err != nil {
		h.logger.Error("item.setCategory ensure path failed", zap.Error(err))
		jsonutil.InternalError(w, "could not create category folders")
		return
	}

	moved, err := h.tree.Move(ctx, file, dst)
	if err != nil {
		h.logger.Error("item.setCategory move failed", zap.Error(err))
		jsonutil.InternalError(w, "could not move file")
		return
	}

	if err := h.items.SetCategory(ctx, item.FileID, cat1, cat2, h.cdnURL(moved.RelPath), library.Signature(moved)); err != nil {
		h.logger.Error("item.setCategory row update failed", zap.Error(err))
		jsonutil.InternalError(w, "could not update item")
		return
	}
	h.tax.Invalidate()

	h.logger.Info("item recategorized",
		zap.String("slug", slug),
		zap.String("cat1", cat1),
		zap.String("cat2", cat2))
	jsonutil.OK(w, okResponse{OK: true})
}

// SetDescription handles POST /api/items/{slug}/description. The description
// is an opaque enrichment payload: stored, never interpreted.
func (h *Handler) SetDescription(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req setDescriptionRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	item, err := h.items.GetBySlug(ctx, slug)
	if errors.Is(err, itemstore.ErrNotFound) {
		jsonutil.NotFound(w, "item not found")
		return
	}
	if err != nil {
		h.logger.Error("item.setDescription lookup failed", zap.Error(err))
		jsonutil.InternalError(w, "could not load item")
		return
	}

	if err := h.items.SetDescription(ctx, item.FileID, req.Description); err != nil {
		h.logger.Error("item.setDescription failed", zap.Error(err))
		jsonutil.InternalError(w, "could not update item")
		return
	}
	jsonutil.OK(w, okResponse{OK: true})
}

/* -------------------------------- sync ---------------------------------- */

// SyncScan handles POST /api/sync/scan.
func (h *Handler) SyncScan(w http.ResponseWriter, r *http.Request) {
	jobID, err := h.engine.Start()
	if errors.Is(err, scan.ErrAlreadyRunning) {
		jsonutil.Conflict(w, "a scan is already running")
		return
	}
	if err != nil {
		h.logger.Error("sync.fullScan failed to start", zap.Error(err))
		jsonutil.InternalError(w, "could not start scan")
		return
	}
	jsonutil.OK(w, scanStartResponse{OK: true, JobID: jobID})
}

// SyncStatus handles GET /api/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, scanStatusResponse{OK: true, Status: h.engine.Status()})
}

/* ------------------------------- helpers -------------------------------- */

// cdnURL builds the public reference URL for a library-relative path.
func (h *Handler) cdnURL(relPath string) string {
	segs := strings.Split(relPath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return h.cdnBase + "/" + strings.Join(segs, "/")
}

func parseInt(s string, def int64) int64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
