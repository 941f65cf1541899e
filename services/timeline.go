package services

import (
	"context"
	"log"
	"time"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timeline is the append-only audit log. Writes are best-effort.
type Timeline struct {
	store TimelineStore
	now   func() time.Time
}

func NewTimeline(store TimelineStore, now func() time.Time) *Timeline {
	if now == nil {
		now = time.Now
	}
	return &Timeline{store: store, now: now}
}

// Append records an event. A failed write is logged and swallowed so the
// triggering operation is never rolled back by it.
func (t *Timeline) Append(ctx context.Context, issueID primitive.ObjectID, actorID *primitive.ObjectID, action, details string) {
	event := &models.TimelineEvent{
		IssueID:   issueID,
		UserID:    actorID,
		Action:    action,
		Details:   details,
		CreatedAt: t.now(),
	}
	if err := t.store.Append(ctx, event); err != nil {
		log.Printf("failed to log timeline event %q for issue %s: %v", action, issueID.Hex(), err)
	}
}

// ForIssue lists an issue's events, newest first.
func (t *Timeline) ForIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEvent, error) {
	return t.store.ListByIssue(ctx, issueID)
}

// ForIssues lists up to limit events across issues, newest first.
func (t *Timeline) ForIssues(ctx context.Context, issueIDs []primitive.ObjectID, limit int) ([]models.TimelineEvent, error) {
	if len(issueIDs) == 0 {
		return nil, nil
	}
	return t.store.ListByIssues(ctx, issueIDs, limit)
}
