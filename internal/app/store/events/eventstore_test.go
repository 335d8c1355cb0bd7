package eventstore

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/galleriahq/galleria/internal/domain/models"
	"github.com/galleriahq/galleria/internal/testutil"
)

func TestUpsertLike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id, deduped, err := s.UpsertLike(ctx, "item1", "Alice@Example.com", "/items/one")
	if err != nil {
		t.Fatalf("UpsertLike: %v", err)
	}
	if deduped {
		t.Error("first like should not be deduped")
	}

	again, deduped, err := s.UpsertLike(ctx, "item1", "alice@example.com", "/items/one")
	if err != nil {
		t.Fatalf("UpsertLike repeat: %v", err)
	}
	if !deduped {
		t.Error("repeat like should be deduped")
	}
	if again != id {
		t.Errorf("repeat like returned a different row: %s vs %s", again.Hex(), id.Hex())
	}

	counts, err := s.Stats(ctx, "item1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if counts.Likes != 1 {
		t.Errorf("likes = %d, want 1", counts.Likes)
	}
}

func TestRemoveAndReviveLike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id, _, err := s.UpsertLike(ctx, "item1", "alice@example.com", "")
	if err != nil {
		t.Fatalf("UpsertLike: %v", err)
	}

	if err := s.RemoveLike(ctx, "item1", "alice@example.com"); err != nil {
		t.Fatalf("RemoveLike: %v", err)
	}
	if err := s.RemoveLike(ctx, "item1", "alice@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveLike err = %v, want ErrNotFound", err)
	}

	liked, err := s.HasLiked(ctx, "item1", "alice@example.com")
	if err != nil {
		t.Fatalf("HasLiked: %v", err)
	}
	if liked {
		t.Error("HasLiked should be false after removal")
	}

	// Re-liking revives the same row rather than inserting a second one.
	revived, deduped, err := s.UpsertLike(ctx, "item1", "alice@example.com", "")
	if err != nil {
		t.Fatalf("re-like: %v", err)
	}
	if deduped {
		t.Error("re-like after removal should not be deduped")
	}
	if revived != id {
		t.Errorf("re-like created a new row: %s vs %s", revived.Hex(), id.Hex())
	}
}

func TestAddComment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev, err := s.AddComment(ctx, "item1", "alice@example.com", "/items/one", "nice <script>alert(1)</script>shot")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if ev.Value != "nice shot" {
		t.Errorf("sanitized value = %q, want %q", ev.Value, "nice shot")
	}

	if _, err := s.AddComment(ctx, "item1", "alice@example.com", "", "<b></b>"); !errors.Is(err, ErrEmptyComment) {
		t.Errorf("empty comment err = %v, want ErrEmptyComment", err)
	}

	comments, err := s.ListComments(ctx, "item1")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(comments))
	}
}

func TestRemoveCommentOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev, err := s.AddComment(ctx, "item1", "alice@example.com", "", "hello")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	if _, err := s.RemoveComment(ctx, ev.ID, "mallory@example.com"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign removal err = %v, want ErrNotOwner", err)
	}

	removed, err := s.RemoveComment(ctx, ev.ID, "ALICE@example.com")
	if err != nil {
		t.Fatalf("RemoveComment: %v", err)
	}
	if !removed.Deleted {
		t.Error("removed comment should be marked deleted")
	}

	if _, err := s.RemoveComment(ctx, ev.ID, "alice@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double removal err = %v, want ErrNotFound", err)
	}

	comments, err := s.ListComments(ctx, "item1")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("live comments = %d, want 0", len(comments))
	}
}

func TestViewsAppendOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := s.AddView(ctx, "item1", "alice@example.com", "/items/one"); err != nil {
			t.Fatalf("AddView: %v", err)
		}
	}

	counts, err := s.Stats(ctx, "item1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if counts.Views != 3 {
		t.Errorf("views = %d, want 3", counts.Views)
	}
}

func TestStatsExcludesDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, _, err := s.UpsertLike(ctx, "item1", "alice@example.com", ""); err != nil {
		t.Fatalf("UpsertLike: %v", err)
	}
	if _, err := s.AddView(ctx, "item1", "alice@example.com", ""); err != nil {
		t.Fatalf("AddView: %v", err)
	}
	if err := s.RemoveLike(ctx, "item1", "alice@example.com"); err != nil {
		t.Fatalf("RemoveLike: %v", err)
	}

	counts, err := s.Stats(ctx, "item1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if counts.Likes != 0 || counts.Views != 1 {
		t.Errorf("counts = %+v, want 0 likes / 1 view", counts)
	}
}

func TestCountsForAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, _, err := s.UpsertLike(ctx, "item1", "alice@example.com", ""); err != nil {
		t.Fatalf("UpsertLike: %v", err)
	}
	if _, err := s.AddView(ctx, "item1", "bob@example.com", ""); err != nil {
		t.Fatalf("AddView: %v", err)
	}
	if _, err := s.AddComment(ctx, "item2", "bob@example.com", "", "great"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	all, err := s.CountsForAll(ctx)
	if err != nil {
		t.Fatalf("CountsForAll: %v", err)
	}
	if c := all["item1"]; c.Likes != 1 || c.Views != 1 || c.Comments != 0 {
		t.Errorf("item1 counts = %+v", c)
	}
	if c := all["item2"]; c.Comments != 1 {
		t.Errorf("item2 counts = %+v", c)
	}
	if _, ok := all["item3"]; ok {
		t.Error("items without events should be absent")
	}
}

func TestListByUserPaged(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 5; i++ {
		if _, err := s.AddView(ctx, "item1", "alice@example.com", ""); err != nil {
			t.Fatalf("AddView: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	page, hasMore, err := s.ListByUserPaged(ctx, "alice@example.com", models.EventView, time.Time{}, 3)
	if err != nil {
		t.Fatalf("ListByUserPaged: %v", err)
	}
	if len(page) != 3 || !hasMore {
		t.Fatalf("page = %d rows, hasMore = %v, want 3/true", len(page), hasMore)
	}
	if page[0].CreatedAt.Before(page[1].CreatedAt) {
		t.Error("page should be newest first")
	}

	rest, hasMore, err := s.ListByUserPaged(ctx, "alice@example.com", models.EventView, page[len(page)-1].CreatedAt, 3)
	if err != nil {
		t.Fatalf("ListByUserPaged rest: %v", err)
	}
	if len(rest) != 2 || hasMore {
		t.Errorf("rest = %d rows, hasMore = %v, want 2/false", len(rest), hasMore)
	}

	n, err := s.CountByUser(ctx, "alice@example.com", models.EventView)
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}
}

func TestListByUserPagedExcludesPartialRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := s.AddView(ctx, "item1", "alice@example.com", ""); err != nil {
			t.Fatalf("AddView: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	// A row missing its item id, as left by a writer that died mid-insert.
	// It sorts newest, so it would occupy the page window if not excluded.
	if _, err := s.c.InsertOne(ctx, bson.M{
		"user_email": "alice@example.com",
		"type":       models.EventView,
		"deleted":    false,
		"created_at": time.Now().Add(time.Second),
		"updated_at": time.Now().Add(time.Second),
	}); err != nil {
		t.Fatalf("insert partial row: %v", err)
	}

	page, hasMore, err := s.ListByUserPaged(ctx, "alice@example.com", models.EventView, time.Time{}, 2)
	if err != nil {
		t.Fatalf("ListByUserPaged: %v", err)
	}
	if len(page) != 2 || !hasMore {
		t.Fatalf("page = %d rows, hasMore = %v, want 2/true", len(page), hasMore)
	}
	for _, ev := range page {
		if !ev.Complete() {
			t.Errorf("page contains partial row: %+v", ev)
		}
	}

	rest, hasMore, err := s.ListByUserPaged(ctx, "alice@example.com", models.EventView, page[len(page)-1].CreatedAt, 2)
	if err != nil {
		t.Fatalf("ListByUserPaged rest: %v", err)
	}
	if len(rest) != 1 || hasMore {
		t.Errorf("rest = %d rows, hasMore = %v, want 1/false", len(rest), hasMore)
	}
}
