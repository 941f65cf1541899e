package services

import (
	"time"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const uncategorised = "General"

// ComplaintView is the detail projection of an issue.
type ComplaintView struct {
	ID                 primitive.ObjectID     `json:"id"`
	UserID             *primitive.ObjectID    `json:"user_id"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Status             models.IssueStatus     `json:"status"`
	Priority           models.IssuePriority   `json:"priority"`
	PriorityScore      float64                `json:"priority_score"`
	Address            string                 `json:"address"`
	PhotoURL           *string                `json:"photo_url"`
	Upvotes            int                    `json:"upvotes"`
	Latitude           *float64               `json:"latitude"`
	Longitude          *float64               `json:"longitude"`
	ResolutionPhotoURL *string                `json:"resolution_photo_url"`
	ResolutionType     *models.ResolutionType `json:"resolution_type"`
	IsEscalated        bool                   `json:"is_escalated"`
	IsAnonymous        bool                   `json:"is_anonymous"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	SLADeadline        time.Time              `json:"sla_deadline"`
	Category           string                 `json:"category"`
	Department         *string                `json:"department"`
	SLAHours           int                    `json:"sla_hours"`
	ReporterName       string                 `json:"reporter_name"`
	ReporterEmail      *string                `json:"reporter_email"`
	FraudFlags         []FraudFlag            `json:"fraud_flags"`
}

// ComplaintSummary is the row shape of admin and "mine" listings.
type ComplaintSummary struct {
	ID            primitive.ObjectID   `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Status        models.IssueStatus   `json:"status"`
	Priority      models.IssuePriority `json:"priority"`
	PriorityScore float64              `json:"priority_score"`
	Address       string               `json:"address"`
	PhotoURL      *string              `json:"photo_url"`
	Upvotes       int                  `json:"upvotes"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	SLADeadline   time.Time            `json:"sla_deadline"`
	Category      string               `json:"category"`
	Department    *string              `json:"department,omitempty"`
	ReporterName  string               `json:"reporter_name,omitempty"`
	Latitude      *float64             `json:"latitude,omitempty"`
	Longitude     *float64             `json:"longitude,omitempty"`
}

// FeedPost is the community feed shape.
type FeedPost struct {
	ID           primitive.ObjectID `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Status       models.IssueStatus `json:"status"`
	Category     string             `json:"category"`
	Address      string             `json:"address"`
	PhotoURL     *string            `json:"photo_url"`
	Upvotes      int                `json:"upvotes"`
	CreatedAt    time.Time          `json:"created_at"`
	ReporterName string             `json:"reporter_name"`
	IsAnonymous  bool               `json:"is_anonymous"`
}

type FeedPage struct {
	Posts   []FeedPost `json:"posts"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	Pages   int        `json:"pages"`
	Results int        `json:"results"`
}

// DuplicateCandidate is a nearby open issue returned by the duplicate check.
type DuplicateCandidate struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      models.IssueStatus `json:"status"`
	Upvotes     int                `json:"upvotes"`
	Address     string             `json:"address"`
	PhotoURL    *string            `json:"photo_url"`
	CreatedAt   time.Time          `json:"created_at"`
	Category    string             `json:"category"`
}

type FraudReport struct {
	Flags     []FraudFlag `json:"flags"`
	IsFlagged bool        `json:"isFlagged"`
}

type TimelineEntry struct {
	ID        primitive.ObjectID  `json:"id"`
	IssueID   primitive.ObjectID  `json:"issue_id"`
	UserID    *primitive.ObjectID `json:"user_id"`
	UserName  string              `json:"user_name,omitempty"`
	UserRole  models.Role         `json:"user_role,omitempty"`
	Action    string              `json:"action"`
	Details   string              `json:"details"`
	CreatedAt time.Time           `json:"created_at"`
}

// Notification is derived on read from timeline events and votes.
type Notification struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Read    bool      `json:"read"`
	Link    string    `json:"link"`
}

// CreatedComplaint is returned by CreateComplaint.
type CreatedComplaint struct {
	ID        primitive.ObjectID   `json:"id"`
	Title     string               `json:"title"`
	Status    models.IssueStatus   `json:"status"`
	Priority  models.IssuePriority `json:"priority"`
	CreatedAt time.Time            `json:"created_at"`
}

// StatusUpdated is returned by UpdateStatus.
type StatusUpdated struct {
	ID                 primitive.ObjectID `json:"id"`
	Status             models.IssueStatus `json:"status"`
	UpdatedAt          time.Time          `json:"updated_at"`
	ResolutionPhotoURL *string            `json:"resolution_photo_url"`
}

func categoryName(cat *models.Category) string {
	if cat == nil {
		return uncategorised
	}
	return cat.Name
}

func categoryDepartment(cat *models.Category) *string {
	if cat == nil || cat.Department == "" {
		return nil
	}
	d := cat.Department
	return &d
}

func lookupCategory(cats map[primitive.ObjectID]models.Category, id *primitive.ObjectID) *models.Category {
	if id == nil {
		return nil
	}
	if cat, ok := cats[*id]; ok {
		return &cat
	}
	return nil
}

func lookupUser(users map[primitive.ObjectID]models.User, id primitive.ObjectID) *models.User {
	if u, ok := users[id]; ok {
		return &u
	}
	return nil
}
