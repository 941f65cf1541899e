// Package servicetest provides in-memory stores and collaborators for
// exercising the services without MongoDB.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB is a mutex-guarded in-memory backend. Records are kept in insertion
// order and every method works on copies.
type DB struct {
	mu         sync.Mutex
	issues     []models.Issue
	categories []models.Category
	votes      []models.Vote
	events     []models.TimelineEvent
	users      []models.User

	// Injected failures.
	TimelineErr error
	PointsErr   error
}

func New() *DB {
	return &DB{}
}

// Stores returns the store bundle backed by db.
func (db *DB) Stores() services.Stores {
	return services.Stores{
		Complaints: &Complaints{db},
		Categories: &Categories{db},
		Votes:      &Votes{db},
		Timeline:   &Timeline{db},
		Users:      &Users{db},
	}
}

// Analytics returns the aggregate store backed by db.
func (db *DB) Analytics() *Analytics {
	return &Analytics{db}
}

// Seeding and inspection helpers.

func (db *DB) AddUser(u models.User) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	db.users = append(db.users, u)
	return u
}

func (db *DB) AddCategory(c models.Category) models.Category {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	db.categories = append(db.categories, c)
	return c
}

func (db *DB) AddIssue(i models.Issue) models.Issue {
	db.mu.Lock()
	defer db.mu.Unlock()
	if i.ID.IsZero() {
		i.ID = primitive.NewObjectID()
	}
	db.issues = append(db.issues, i)
	return i
}

func (db *DB) Issue(id primitive.ObjectID) (models.Issue, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if i := db.issueIndex(id); i >= 0 {
		return db.issues[i], true
	}
	return models.Issue{}, false
}

func (db *DB) IssueCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.issues)
}

func (db *DB) User(id primitive.ObjectID) (models.User, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if i := db.userIndex(id); i >= 0 {
		return db.users[i], true
	}
	return models.User{}, false
}

// LiveVotes counts the vote records for an issue.
func (db *DB) LiveVotes(issueID primitive.ObjectID) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, v := range db.votes {
		if v.IssueID == issueID {
			n++
		}
	}
	return n
}

func (db *DB) Events(issueID primitive.ObjectID) []models.TimelineEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.TimelineEvent
	for _, e := range db.events {
		if e.IssueID == issueID {
			out = append(out, e)
		}
	}
	return out
}

func (db *DB) EventCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.events)
}

func (db *DB) issueIndex(id primitive.ObjectID) int {
	for i := range db.issues {
		if db.issues[i].ID == id {
			return i
		}
	}
	return -1
}

func (db *DB) userIndex(id primitive.ObjectID) int {
	for i := range db.users {
		if db.users[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, services.ErrNotFound)
}

// Complaints implements services.ComplaintStore.
type Complaints struct{ db *DB }

func (s *Complaints) Create(_ context.Context, issue *models.Issue) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	if s.db.issueIndex(issue.ID) >= 0 {
		return fmt.Errorf("issue %s: %w", issue.ID.Hex(), services.ErrConflict)
	}
	s.db.issues = append(s.db.issues, *issue)
	return nil
}

func (s *Complaints) FindByID(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if i := s.db.issueIndex(id); i >= 0 {
		issue := s.db.issues[i]
		return &issue, nil
	}
	return nil, notFound("issue", id.Hex())
}

func (s *Complaints) FindByLegacyID(_ context.Context, legacyID int64) (*models.Issue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, issue := range s.db.issues {
		if issue.LegacyID != nil && *issue.LegacyID == legacyID {
			return &issue, nil
		}
	}
	return nil, notFound("issue", legacyID)
}

func (s *Complaints) SetStatus(_ context.Context, id primitive.ObjectID, change services.StatusChange) (*models.Issue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i := s.db.issueIndex(id)
	if i < 0 {
		return nil, notFound("issue", id.Hex())
	}
	issue := &s.db.issues[i]
	issue.Status = change.Status
	issue.UpdatedAt = change.UpdatedAt
	if change.ResolutionPhotoURL != nil {
		issue.ResolutionPhotoURL = change.ResolutionPhotoURL
	}
	if change.ResolvedAt != nil {
		issue.ResolvedAt = change.ResolvedAt
	}
	out := *issue
	return &out, nil
}

func (s *Complaints) IncrementUpvotes(_ context.Context, id primitive.ObjectID, delta int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i := s.db.issueIndex(id)
	if i < 0 {
		return notFound("issue", id.Hex())
	}
	s.db.issues[i].Upvotes += delta
	return nil
}

func (s *Complaints) CountByReporterSince(_ context.Context, reporterID primitive.ObjectID, since time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, issue := range s.db.issues {
		if issue.UserID == reporterID && !issue.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Complaints) CountByReporterTitle(_ context.Context, reporterID primitive.ObjectID, title string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, issue := range s.db.issues {
		if issue.UserID == reporterID && issue.Title == title {
			n++
		}
	}
	return n, nil
}

func (s *Complaints) RepeatedTitles(_ context.Context, reporterID primitive.ObjectID, minCount int64) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	counts := map[string]int64{}
	var order []string
	for _, issue := range s.db.issues {
		if issue.UserID != reporterID {
			continue
		}
		if _, seen := counts[issue.Title]; !seen {
			order = append(order, issue.Title)
		}
		counts[issue.Title]++
	}
	var out []string
	for _, title := range order {
		if counts[title] >= minCount {
			out = append(out, title)
		}
	}
	return out, nil
}

func (s *Complaints) FindOpenWithin(_ context.Context, box services.BoundingBox, limit int) ([]models.Issue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Issue
	for _, issue := range s.db.issues {
		if issue.Status.Open() && issue.HasLocation() && box.Contains(*issue.Latitude, *issue.Longitude) {
			out = append(out, issue)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Upvotes > out[j].Upvotes })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Complaints) List(_ context.Context, q services.ListQuery) ([]models.Issue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := s.filter(q)

	switch q.Sort {
	case services.SortMostVoted:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Upvotes > out[j].Upvotes })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}

	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			return []models.Issue{}, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Complaints) Count(_ context.Context, q services.ListQuery) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return int64(len(s.filter(q))), nil
}

func (s *Complaints) ListOverdue(_ context.Context, now time.Time, limit int) ([]models.Issue, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Issue
	for _, issue := range s.db.issues {
		if issue.Status.Open() && !issue.IsEscalated && !issue.SLADeadline.IsZero() && issue.SLADeadline.Before(now) {
			out = append(out, issue)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SLADeadline.Before(out[j].SLADeadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Complaints) MarkEscalated(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i := s.db.issueIndex(id)
	if i < 0 {
		return false, notFound("issue", id.Hex())
	}
	if s.db.issues[i].IsEscalated {
		return false, nil
	}
	s.db.issues[i].IsEscalated = true
	s.db.issues[i].UpdatedAt = at
	return true, nil
}

// filter returns matches newest-inserted first so that stable sorts break
// timestamp ties in favour of later records.
func (s *Complaints) filter(q services.ListQuery) []models.Issue {
	out := []models.Issue{}
	for i := len(s.db.issues) - 1; i >= 0; i-- {
		issue := s.db.issues[i]
		if q.ReporterID != nil && issue.UserID != *q.ReporterID {
			continue
		}
		if q.CategoryID != nil && (issue.CategoryID == nil || *issue.CategoryID != *q.CategoryID) {
			continue
		}
		if q.PublicOnly && !issue.IsPublic {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// Categories implements services.CategoryStore.
type Categories struct{ db *DB }

func (s *Categories) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.categories {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, notFound("category", id.Hex())
}

func (s *Categories) FindByName(_ context.Context, name string) (*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.categories {
		if strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}
	return nil, notFound("category", name)
}

func (s *Categories) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := map[primitive.ObjectID]models.Category{}
	for _, c := range s.db.categories {
		if want[c.ID] {
			out[c.ID] = c
		}
	}
	return out, nil
}

func (s *Categories) Upsert(_ context.Context, category *models.Category) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range s.db.categories {
		if strings.EqualFold(s.db.categories[i].Name, category.Name) {
			category.ID = s.db.categories[i].ID
			s.db.categories[i] = *category
			return false, nil
		}
	}
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	s.db.categories = append(s.db.categories, *category)
	return true, nil
}

// Votes implements services.VoteStore. Uniqueness of (issue, user) is
// checked under the same lock as the insert.
type Votes struct{ db *DB }

func (s *Votes) Insert(_ context.Context, vote *models.Vote) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, v := range s.db.votes {
		if v.IssueID == vote.IssueID && v.UserID == vote.UserID {
			return fmt.Errorf("vote on %s: %w", vote.IssueID.Hex(), services.ErrConflict)
		}
	}
	if vote.ID.IsZero() {
		vote.ID = primitive.NewObjectID()
	}
	s.db.votes = append(s.db.votes, *vote)
	return nil
}

func (s *Votes) Delete(_ context.Context, issueID, userID primitive.ObjectID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i, v := range s.db.votes {
		if v.IssueID == issueID && v.UserID == userID {
			s.db.votes = append(s.db.votes[:i], s.db.votes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Votes) CountByIssue(_ context.Context, issueID primitive.ObjectID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, v := range s.db.votes {
		if v.IssueID == issueID {
			n++
		}
	}
	return n, nil
}

func (s *Votes) RecentForIssues(_ context.Context, issueIDs []primitive.ObjectID, limit int) ([]models.Vote, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	want := idSet(issueIDs)
	var out []models.Vote
	for i := len(s.db.votes) - 1; i >= 0; i-- {
		if want[s.db.votes[i].IssueID] {
			out = append(out, s.db.votes[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Timeline implements services.TimelineStore.
type Timeline struct{ db *DB }

func (s *Timeline) Append(_ context.Context, event *models.TimelineEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.TimelineErr != nil {
		return s.db.TimelineErr
	}
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	s.db.events = append(s.db.events, *event)
	return nil
}

func (s *Timeline) ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEvent, error) {
	return s.ListByIssues(ctx, []primitive.ObjectID{issueID}, 0)
}

func (s *Timeline) ListByIssues(_ context.Context, issueIDs []primitive.ObjectID, limit int) ([]models.TimelineEvent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	want := idSet(issueIDs)
	out := []models.TimelineEvent{}
	for i := len(s.db.events) - 1; i >= 0; i-- {
		if want[s.db.events[i].IssueID] {
			out = append(out, s.db.events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Users implements services.UserStore.
type Users struct{ db *DB }

func (s *Users) Create(_ context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user %s: %w", user.Email, services.ErrConflict)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.db.users = append(s.db.users, *user)
	return nil
}

func (s *Users) Update(_ context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	i := s.db.userIndex(user.ID)
	if i < 0 {
		return notFound("user", user.ID.Hex())
	}
	// Points are owned by AddPoints.
	points := s.db.users[i].Points
	s.db.users[i] = *user
	s.db.users[i].Points = points
	return nil
}

func (s *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if i := s.db.userIndex(id); i >= 0 {
		u := s.db.users[i]
		return &u, nil
	}
	return nil, notFound("user", id.Hex())
}

func (s *Users) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	want := idSet(ids)
	out := map[primitive.ObjectID]models.User{}
	for _, u := range s.db.users {
		if want[u.ID] {
			out[u.ID] = u
		}
	}
	return out, nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, notFound("user", email)
}

func (s *Users) AddPoints(_ context.Context, id primitive.ObjectID, delta int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.PointsErr != nil {
		return s.db.PointsErr
	}
	i := s.db.userIndex(id)
	if i < 0 {
		return notFound("user", id.Hex())
	}
	s.db.users[i].Points += delta
	return nil
}

func (s *Users) SetRole(_ context.Context, email string, role models.Role) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range s.db.users {
		if strings.EqualFold(s.db.users[i].Email, email) {
			s.db.users[i].Role = role
			return nil
		}
	}
	return notFound("user", email)
}

func (s *Users) Leaderboard(_ context.Context, limit int) ([]services.LeaderboardEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	reports := map[primitive.ObjectID]int64{}
	for _, issue := range s.db.issues {
		reports[issue.UserID]++
	}
	var out []services.LeaderboardEntry
	for _, u := range s.db.users {
		if u.Role != models.RoleCitizen || !u.IsVerified {
			continue
		}
		out = append(out, services.LeaderboardEntry{
			ID:      u.ID.Hex(),
			Name:    u.Name,
			Points:  u.Points,
			Reports: reports[u.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Users) CountCitizens(_ context.Context) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, u := range s.db.users {
		if u.Role == models.RoleCitizen {
			n++
		}
	}
	return n, nil
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
