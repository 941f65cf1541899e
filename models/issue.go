package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueStatus enum
type IssueStatus string

const (
	Submitted  IssueStatus = "Submitted"
	Assigned   IssueStatus = "Assigned"
	InProgress IssueStatus = "In Progress"
	Resolved   IssueStatus = "Resolved"
	Closed     IssueStatus = "Closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []IssueStatus{Submitted, Assigned, InProgress, Resolved, Closed}

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Open reports whether the issue still awaits resolution.
func (s IssueStatus) Open() bool {
	return s != Resolved && s != Closed
}

// IssuePriority enum
type IssuePriority string

const (
	Low    IssuePriority = "Low"
	Medium IssuePriority = "Medium"
	High   IssuePriority = "High"
)

// ResolutionType enum
type ResolutionType string

const (
	Temporary ResolutionType = "Temporary"
	Permanent ResolutionType = "Permanent"
)

// DefaultSLAHours applies when an issue has no resolvable category.
const DefaultSLAHours = 24

// Issue represents a civic complaint reported by a citizen
type Issue struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	LegacyID           *int64              `bson:"_sqlite_id,omitempty" json:"-"`
	UserID             primitive.ObjectID  `bson:"user_id" json:"user_id"`
	CategoryID         *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Title              string              `bson:"title" json:"title"`
	Description        string              `bson:"description" json:"description"`
	Latitude           *float64            `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude          *float64            `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Address            string              `bson:"address" json:"address"`
	PhotoURL           *string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Status             IssueStatus         `bson:"status" json:"status"`
	Priority           IssuePriority       `bson:"priority" json:"priority"`
	PriorityScore      float64             `bson:"priority_score" json:"priority_score"`
	AssignedTo         *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	ResolutionPhotoURL *string             `bson:"resolution_photo_url,omitempty" json:"resolution_photo_url,omitempty"`
	ResolutionType     *ResolutionType     `bson:"resolution_type,omitempty" json:"resolution_type,omitempty"`
	Upvotes            int                 `bson:"upvotes" json:"upvotes"`
	IsEscalated        bool                `bson:"is_escalated" json:"is_escalated"`
	IsPublic           bool                `bson:"is_public" json:"is_public"`
	IsAnonymous        bool                `bson:"is_anonymous" json:"is_anonymous"`
	SLADeadline        time.Time           `bson:"sla_deadline" json:"sla_deadline"`
	CreatedAt          time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updated_at"`
	ResolvedAt         *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// HasLocation reports whether both coordinates are set.
func (i *Issue) HasLocation() bool {
	return i.Latitude != nil && i.Longitude != nil
}
