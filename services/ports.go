package services

import (
	"context"
	"time"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplaintStore persists issues. Lookups that miss return an error wrapping
// ErrNotFound.
type ComplaintStore interface {
	Create(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	FindByLegacyID(ctx context.Context, legacyID int64) (*models.Issue, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, change StatusChange) (*models.Issue, error)
	// IncrementUpvotes must apply delta atomically in the store.
	IncrementUpvotes(ctx context.Context, id primitive.ObjectID, delta int) error
	CountByReporterSince(ctx context.Context, reporterID primitive.ObjectID, since time.Time) (int64, error)
	CountByReporterTitle(ctx context.Context, reporterID primitive.ObjectID, title string) (int64, error)
	// RepeatedTitles returns the reporter's titles used at least minCount times.
	RepeatedTitles(ctx context.Context, reporterID primitive.ObjectID, minCount int64) ([]string, error)
	FindOpenWithin(ctx context.Context, box BoundingBox, limit int) ([]models.Issue, error)
	List(ctx context.Context, q ListQuery) ([]models.Issue, error)
	Count(ctx context.Context, q ListQuery) (int64, error)
	// ListOverdue returns open, not yet escalated issues whose SLA deadline
	// is before now, oldest deadline first.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.Issue, error)
	// MarkEscalated flags the issue unless it already is, reporting whether
	// this call changed it.
	MarkEscalated(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

type CategoryStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	// FindByName matches the whole name case-insensitively.
	FindByName(ctx context.Context, name string) (*models.Category, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Category, error)
	Upsert(ctx context.Context, category *models.Category) (bool, error)
}

// VoteStore must reject a second vote for the same (issue, user) pair with
// ErrConflict, enforced by the store rather than by a prior read.
type VoteStore interface {
	Insert(ctx context.Context, vote *models.Vote) error
	Delete(ctx context.Context, issueID, userID primitive.ObjectID) (bool, error)
	CountByIssue(ctx context.Context, issueID primitive.ObjectID) (int64, error)
	RecentForIssues(ctx context.Context, issueIDs []primitive.ObjectID, limit int) ([]models.Vote, error)
}

type TimelineStore interface {
	Append(ctx context.Context, event *models.TimelineEvent) error
	ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEvent, error)
	ListByIssues(ctx context.Context, issueIDs []primitive.ObjectID, limit int) ([]models.TimelineEvent, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// AddPoints must apply delta atomically in the store.
	AddPoints(ctx context.Context, id primitive.ObjectID, delta int) error
	SetRole(ctx context.Context, email string, role models.Role) error
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	CountCitizens(ctx context.Context) (int64, error)
}

// Stores bundles the persistence the services need.
type Stores struct {
	Complaints ComplaintStore
	Categories CategoryStore
	Votes      VoteStore
	Timeline   TimelineStore
	Users      UserStore
}

// StatusChange is the write applied by UpdateStatus.
type StatusChange struct {
	Status             models.IssueStatus
	ResolutionPhotoURL *string
	UpdatedAt          time.Time
	ResolvedAt         *time.Time
}

type ListSort string

const (
	SortNewest    ListSort = "newest"
	SortMostVoted ListSort = "most_voted"
)

// ListQuery filters issue listings. A zero Limit means no limit.
type ListQuery struct {
	ReporterID *primitive.ObjectID
	CategoryID *primitive.ObjectID
	PublicOnly bool
	Sort       ListSort
	Skip       int64
	Limit      int64
}

// BoundingBox is an inclusive latitude/longitude rectangle.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

type LeaderboardEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Points  int    `json:"points"`
	Reports int64  `json:"reports"`
	Badge   string `json:"badge"`
}

//go:generate mockgen -destination=mocks/notifier_mock.go -package=mocks civicpulse-be/services Notifier

// Notifier delivers lifecycle notifications. Calls are made from background
// tasks and never from the request path.
type Notifier interface {
	ComplaintFiled(ctx context.Context, reporter *models.User, issue *models.Issue) error
	AdminAlert(ctx context.Context, issue *models.Issue) error
	StatusChanged(ctx context.Context, reporter *models.User, issue *models.Issue, status models.IssueStatus) error
	Welcome(ctx context.Context, user *models.User) error
}

// Verifier proves a user controls their account identity (one-time code,
// external identity provider, ...).
type Verifier interface {
	Start(ctx context.Context, email string) error
	Check(ctx context.Context, email, code string) (bool, error)
}

// TaskRunner accepts fire-and-forget work. Submit must not block.
type TaskRunner interface {
	Submit(name string, task Task) bool
}
