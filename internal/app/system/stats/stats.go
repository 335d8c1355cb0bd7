// internal/app/system/stats/stats.go
package stats

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	eventstore "github.com/galleriahq/galleria/internal/app/store/events"
	itemstore "github.com/galleriahq/galleria/internal/app/store/items"
	"github.com/galleriahq/galleria/internal/domain/models"
)

// Aggregator keeps the denormalized counters on item rows in step with the
// event log. Request paths bump incrementally; a periodic reconcile recomputes
// exact totals so drift from races or missed bumps never persists.
type Aggregator struct {
	items  *itemstore.Store
	events *eventstore.Store
	logger *zap.Logger
}

func New(items *itemstore.Store, events *eventstore.Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{items: items, events: events, logger: logger}
}

// CounterFor maps an event type to the item counter it feeds.
func CounterFor(eventType string) (string, bool) {
	switch eventType {
	case models.EventView:
		return itemstore.CounterViews, true
	case models.EventLike:
		return itemstore.CounterLikes, true
	case models.EventComment:
		return itemstore.CounterComments, true
	}
	return "", false
}

// Bump applies an incremental counter change for one event.
func (a *Aggregator) Bump(ctx context.Context, itemID, eventType string, delta int64) error {
	counter, ok := CounterFor(eventType)
	if !ok {
		return fmt.Errorf("stats: no counter for event type %q", eventType)
	}
	return a.items.IncrementCounter(ctx, itemID, counter, delta)
}

// Stats returns the exact live totals for one item, straight from the log.
func (a *Aggregator) Stats(ctx context.Context, itemID string) (eventstore.Counts, error) {
	return a.events.Stats(ctx, itemID)
}

// ReconcileAll recomputes every item's counters from the event log and
// overwrites any that drifted. It returns the number of items corrected.
func (a *Aggregator) ReconcileAll(ctx context.Context) (int, error) {
	exact, err := a.events.CountsForAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("stats: aggregate events: %w", err)
	}
	snapshot, err := a.items.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("stats: snapshot items: %w", err)
	}

	changed := 0
	for fileID, item := range snapshot {
		want := exact[fileID]
		if item.Views == want.Views && item.Likes == want.Likes && item.Comments == want.Comments {
			continue
		}
		if err := a.items.SetCounters(ctx, fileID, want.Views, want.Likes, want.Comments); err != nil {
			return changed, fmt.Errorf("stats: correct counters for %s: %w", fileID, err)
		}
		a.logger.Debug("corrected drifted counters",
			zap.String("file_id", fileID),
			zap.Int64("views", want.Views),
			zap.Int64("likes", want.Likes),
			zap.Int64("comments", want.Comments))
		changed++
	}

	if changed > 0 {
		a.logger.Info("stats reconcile corrected items", zap.Int("changed", changed))
	}
	return changed, nil
}
