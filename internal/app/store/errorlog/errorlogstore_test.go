package errorlog

import (
	"testing"
	"time"

	"github.com/galleriahq/galleria/internal/domain/models"
	"github.com/galleriahq/galleria/internal/testutil"
)

func TestRecordAndRecent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		err := store.Record(ctx, models.ScanError{
			Time:    base.Add(time.Duration(i) * time.Second),
			JobID:   "job-1",
			ItemID:  "42",
			Message: "decode failed",
			Stack:   "goroutine 1 [running]:",
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d rows, want 2", len(recent))
	}
	if !recent[0].Time.After(recent[1].Time) {
		t.Error("Recent should be newest first")
	}
}

func TestRecordStampsZeroTime(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Record(ctx, models.ScanError{Message: "boom"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	recent, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].Time.IsZero() {
		t.Errorf("recorded error should carry a timestamp: %+v", recent)
	}
}

func TestPruneBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	old := models.ScanError{Time: now.Add(-48 * time.Hour), Message: "old"}
	fresh := models.ScanError{Time: now, Message: "fresh"}
	for _, e := range []models.ScanError{old, fresh} {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	pruned, err := store.PruneBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	left, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(left) != 1 || left[0].Message != "fresh" {
		t.Errorf("remaining = %+v, want only the fresh row", left)
	}
}
