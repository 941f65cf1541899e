package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timeline actions written by the lifecycle engine.
const (
	ActionCreated      = "Created"
	ActionStatusUpdate = "Status Update"
	// ActionEscalated is written by the SLA watcher.
	ActionEscalated = "Escalated"
)

// TimelineEvent is an append-only audit entry for an issue
type TimelineEvent struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	IssueID   primitive.ObjectID  `bson:"issue_id" json:"issue_id"`
	UserID    *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Action    string              `bson:"action" json:"action"`
	Details   string              `bson:"details" json:"details"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
