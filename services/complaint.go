package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DailyComplaintLimit = 10
	maxDerivedTitle     = 80
	untitledReport      = "Untitled Report"
)

// ComplaintService is the complaint lifecycle engine: it creates issues,
// moves them through statuses, toggles votes and shapes read projections.
type ComplaintService struct {
	stores     Stores
	categories *CategoryResolver
	timeline   *Timeline
	ledger     *Ledger
	notifier   Notifier
	tasks      TaskRunner

	transitions TransitionPolicy
	fraud       FraudRules
	payOnce     bool
	now         func() time.Time
}

type Option func(*ComplaintService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ComplaintService) { s.now = now }
}

func WithTransitionPolicy(policy TransitionPolicy) Option {
	return func(s *ComplaintService) { s.transitions = policy }
}

// WithSingleResolutionReward pays the resolution points only when an issue
// first moves into Resolved, not when Resolved is set again.
func WithSingleResolutionReward() Option {
	return func(s *ComplaintService) { s.payOnce = true }
}

func WithFraudRules(rules FraudRules) Option {
	return func(s *ComplaintService) { s.fraud = rules }
}

func NewComplaintService(stores Stores, notifier Notifier, tasks TaskRunner, opts ...Option) *ComplaintService {
	s := &ComplaintService{
		stores:      stores,
		categories:  NewCategoryResolver(stores.Categories),
		ledger:      NewLedger(stores.Users),
		notifier:    notifier,
		tasks:       tasks,
		transitions: PermissiveTransitions,
		fraud:       DefaultFraudRules,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.timeline = NewTimeline(stores.Timeline, s.now)
	return s
}

// NewComplaint is the reporter's submission.
type NewComplaint struct {
	Title        string
	Description  string
	CategoryID   string
	CategoryName string
	Latitude     *float64
	Longitude    *float64
	Address      string
	PhotoURL     *string
	IsPublic     bool
	IsAnonymous  bool
}

// CreateComplaint validates and persists a new issue, then awards points,
// logs the creation and queues the confirmation and admin notifications.
func (s *ComplaintService) CreateComplaint(ctx context.Context, reporter *models.User, in NewComplaint) (*CreatedComplaint, error) {
	if reporter == nil {
		return nil, newError(ErrUnauthorized, "You are not logged in")
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" && description == "" {
		return nil, newError(ErrValidation, "Please provide a title or description for the complaint")
	}

	now := s.now()
	count, err := s.stores.Complaints.CountByReporterSince(ctx, reporter.ID, StartOfLocalDay(now))
	if err != nil {
		return nil, fmt.Errorf("count daily complaints: %w", err)
	}
	if count >= DailyComplaintLimit {
		return nil, newError(ErrRateLimited, "You have reached the daily limit of %d complaints.", DailyComplaintLimit)
	}

	res, err := s.categories.Resolve(ctx, in.CategoryID, in.CategoryName)
	if err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}

	if title == "" {
		title = deriveTitle(description)
	}

	issue := &models.Issue{
		ID:          primitive.NewObjectID(),
		UserID:      reporter.ID,
		Title:       title,
		Description: description,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Address:     strings.TrimSpace(in.Address),
		PhotoURL:    nonEmpty(in.PhotoURL),
		Status:      models.Submitted,
		Priority:    models.Medium,
		IsPublic:    in.IsPublic,
		IsAnonymous: in.IsAnonymous,
		SLADeadline: now.Add(time.Duration(res.SLAHours) * time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if res.Category != nil {
		id := res.Category.ID
		issue.CategoryID = &id
	}

	if err := s.stores.Complaints.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}

	s.ledger.awardQuietly(ctx, reporter.ID, PointsForComplaint)
	s.timeline.Append(ctx, issue.ID, &reporter.ID, models.ActionCreated, "Report submitted successfully")

	filed, who := *issue, *reporter
	s.dispatch("complaint-filed", func(ctx context.Context) error {
		return s.notifier.ComplaintFiled(ctx, &who, &filed)
	})
	s.dispatch("admin-alert", func(ctx context.Context) error {
		return s.notifier.AdminAlert(ctx, &filed)
	})

	return &CreatedComplaint{
		ID:        issue.ID,
		Title:     issue.Title,
		Status:    issue.Status,
		Priority:  issue.Priority,
		CreatedAt: issue.CreatedAt,
	}, nil
}

// UpdateStatus moves an issue to a new status on behalf of an admin or
// worker. Resolving requires a resolution photo and credits the reporter.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor *Viewer, ref string, status models.IssueStatus, resolutionPhotoURL *string) (*StatusUpdated, error) {
	if !status.Valid() {
		return nil, newError(ErrValidation, "Invalid status. Must be one of: %s", statusList())
	}
	photo := nonEmpty(resolutionPhotoURL)
	if status == models.Resolved && photo == nil {
		return nil, newError(ErrValidation, "A resolution photo is required when marking a complaint as Resolved.")
	}
	if !actor.Privileged() {
		return nil, newError(ErrForbidden, "Only admins and workers can update complaint status")
	}

	issue, err := s.findIssue(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !s.transitions(issue.Status, status) {
		return nil, newError(ErrValidation, "Cannot change status from %s to %s", issue.Status, status)
	}

	now := s.now()
	change := StatusChange{Status: status, ResolutionPhotoURL: photo, UpdatedAt: now}
	if status == models.Resolved {
		change.ResolvedAt = &now
	}
	updated, err := s.stores.Complaints.SetStatus(ctx, issue.ID, change)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, "Issue not found")
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.timeline.Append(ctx, updated.ID, &actor.ID, models.ActionStatusUpdate, "Status changed to "+string(status))

	if status == models.Resolved && !(s.payOnce && issue.Status == models.Resolved) {
		s.ledger.awardQuietly(ctx, updated.UserID, PointsForResolution)
	}

	changed := *updated
	s.dispatch("status-changed", func(ctx context.Context) error {
		reporter, err := s.stores.Users.FindByID(ctx, changed.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		return s.notifier.StatusChanged(ctx, reporter, &changed, status)
	})

	return &StatusUpdated{
		ID:                 updated.ID,
		Status:             updated.Status,
		UpdatedAt:          updated.UpdatedAt,
		ResolutionPhotoURL: updated.ResolutionPhotoURL,
	}, nil
}

// ToggleVote adds the voter's vote, or removes it when one already exists.
// It reports whether a vote is live afterwards.
func (s *ComplaintService) ToggleVote(ctx context.Context, voterID primitive.ObjectID, ref string) (bool, error) {
	issue, err := s.findIssue(ctx, ref)
	if err != nil {
		return false, err
	}

	removed, err := s.removeVote(ctx, issue.ID, voterID)
	if err != nil || removed {
		return false, err
	}

	vote := &models.Vote{
		ID:        primitive.NewObjectID(),
		IssueID:   issue.ID,
		UserID:    voterID,
		CreatedAt: s.now(),
	}
	if err := s.stores.Votes.Insert(ctx, vote); err != nil {
		if !errors.Is(err, ErrConflict) {
			return false, fmt.Errorf("insert vote: %w", err)
		}
		// A concurrent toggle by the same voter inserted first; this call
		// is the second half of the pair and removes it.
		if _, err := s.removeVote(ctx, issue.ID, voterID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.stores.Complaints.IncrementUpvotes(ctx, issue.ID, 1); err != nil {
		if _, derr := s.stores.Votes.Delete(ctx, issue.ID, voterID); derr != nil {
			log.Printf("failed to roll back vote on %s: %v", issue.ID.Hex(), derr)
		}
		return false, fmt.Errorf("increment upvotes: %w", err)
	}

	s.ledger.awardQuietly(ctx, voterID, PointsForUpvote)
	return true, nil
}

func (s *ComplaintService) removeVote(ctx context.Context, issueID, voterID primitive.ObjectID) (bool, error) {
	deleted, err := s.stores.Votes.Delete(ctx, issueID, voterID)
	if err != nil {
		return false, fmt.Errorf("delete vote: %w", err)
	}
	if !deleted {
		return false, nil
	}
	if err := s.stores.Complaints.IncrementUpvotes(ctx, issueID, -1); err != nil {
		// Put the vote back so the counter and the live votes still agree.
		restored := &models.Vote{ID: primitive.NewObjectID(), IssueID: issueID, UserID: voterID, CreatedAt: s.now()}
		if rerr := s.stores.Votes.Insert(ctx, restored); rerr != nil {
			log.Printf("failed to restore vote on %s: %v", issueID.Hex(), rerr)
		}
		return false, fmt.Errorf("decrement upvotes: %w", err)
	}
	return true, nil
}

// GetComplaint resolves ref and builds the viewer's detail projection.
func (s *ComplaintService) GetComplaint(ctx context.Context, viewer *Viewer, ref string) (*ComplaintView, error) {
	issue, err := s.findIssue(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.AssembleReadProjection(ctx, viewer, issue)
}

// AssembleReadProjection shapes an issue for a viewer. Reporter fields go
// through the privacy filter; fraud flags are computed for privileged
// viewers only.
func (s *ComplaintService) AssembleReadProjection(ctx context.Context, viewer *Viewer, issue *models.Issue) (*ComplaintView, error) {
	var category *models.Category
	if issue.CategoryID != nil {
		cat, err := s.stores.Categories.FindByID(ctx, *issue.CategoryID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load category: %w", err)
		}
		category = cat
	}

	reporter, err := s.stores.Users.FindByID(ctx, issue.UserID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load reporter: %w", err)
		}
		reporter = nil
	}

	info := DetailReporter(viewer, issue, reporter)
	flags := []FraudFlag{}
	if info.ShowFraudFlags && viewer.Privileged() {
		if flags, err = s.fraudFlagsFor(ctx, issue); err != nil {
			return nil, err
		}
	}

	slaHours := models.DefaultSLAHours
	if category != nil && category.SLAHours > 0 {
		slaHours = category.SLAHours
	}

	return &ComplaintView{
		ID:                 issue.ID,
		UserID:             info.UserID,
		Title:              issue.Title,
		Description:        issue.Description,
		Status:             issue.Status,
		Priority:           issue.Priority,
		PriorityScore:      issue.PriorityScore,
		Address:            issue.Address,
		PhotoURL:           issue.PhotoURL,
		Upvotes:            issue.Upvotes,
		Latitude:           issue.Latitude,
		Longitude:          issue.Longitude,
		ResolutionPhotoURL: issue.ResolutionPhotoURL,
		ResolutionType:     issue.ResolutionType,
		IsEscalated:        issue.IsEscalated,
		IsAnonymous:        issue.IsAnonymous,
		CreatedAt:          issue.CreatedAt,
		UpdatedAt:          issue.UpdatedAt,
		SLADeadline:        issue.SLADeadline,
		Category:           categoryName(category),
		Department:         categoryDepartment(category),
		SLAHours:           slaHours,
		ReporterName:       info.Name,
		ReporterEmail:      info.Email,
		FraudFlags:         flags,
	}, nil
}

func (s *ComplaintService) fraudFlagsFor(ctx context.Context, issue *models.Issue) ([]FraudFlag, error) {
	recent, err := s.stores.Complaints.CountByReporterSince(ctx, issue.UserID, s.fraud.WindowStart(s.now()))
	if err != nil {
		return nil, fmt.Errorf("count recent complaints: %w", err)
	}
	sameTitle, err := s.stores.Complaints.CountByReporterTitle(ctx, issue.UserID, issue.Title)
	if err != nil {
		return nil, fmt.Errorf("count same-title complaints: %w", err)
	}
	return s.fraud.Flags(recent, sameTitle), nil
}

// ListComplaints returns every issue, newest first, for the admin console.
func (s *ComplaintService) ListComplaints(ctx context.Context) ([]ComplaintSummary, error) {
	issues, err := s.stores.Complaints.List(ctx, ListQuery{Sort: SortNewest})
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	cats, users, err := s.relations(ctx, issues, true)
	if err != nil {
		return nil, err
	}

	out := make([]ComplaintSummary, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		cat := lookupCategory(cats, issue.CategoryID)
		row := summarize(issue, cat)
		row.Department = categoryDepartment(cat)
		row.ReporterName = ListReporterName(issue, lookupUser(users, issue.UserID))
		row.Latitude, row.Longitude = issue.Latitude, issue.Longitude
		out = append(out, row)
	}
	return out, nil
}

// MyComplaints lists the reporter's own issues, newest first.
func (s *ComplaintService) MyComplaints(ctx context.Context, reporterID primitive.ObjectID) ([]ComplaintSummary, error) {
	issues, err := s.stores.Complaints.List(ctx, ListQuery{ReporterID: &reporterID, Sort: SortNewest})
	if err != nil {
		return nil, fmt.Errorf("list my complaints: %w", err)
	}
	cats, _, err := s.relations(ctx, issues, false)
	if err != nil {
		return nil, err
	}

	out := make([]ComplaintSummary, 0, len(issues))
	for i := range issues {
		out = append(out, summarize(&issues[i], lookupCategory(cats, issues[i].CategoryID)))
	}
	return out, nil
}

// Feed paging bounds.
const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

type FeedQuery struct {
	Page     int
	Limit    int
	Category string
	Sort     ListSort
}

// CommunityFeed pages through public issues. An unknown category name is
// ignored rather than producing an empty feed.
func (s *ComplaintService) CommunityFeed(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultFeedLimit
	}
	if q.Limit > MaxFeedLimit {
		q.Limit = MaxFeedLimit
	}

	query := ListQuery{
		PublicOnly: true,
		Sort:       SortNewest,
		Skip:       int64((q.Page - 1) * q.Limit),
		Limit:      int64(q.Limit),
	}
	if q.Sort == SortMostVoted {
		query.Sort = SortMostVoted
	}
	if name := strings.TrimSpace(q.Category); name != "" && !strings.EqualFold(name, "all") {
		cat, err := s.categories.ByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve feed category: %w", err)
		}
		if cat != nil {
			id := cat.ID
			query.CategoryID = &id
		}
	}

	issues, err := s.stores.Complaints.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	countQuery := query
	countQuery.Skip, countQuery.Limit = 0, 0
	total, err := s.stores.Complaints.Count(ctx, countQuery)
	if err != nil {
		return nil, fmt.Errorf("count feed: %w", err)
	}
	cats, users, err := s.relations(ctx, issues, true)
	if err != nil {
		return nil, err
	}

	posts := make([]FeedPost, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		posts = append(posts, FeedPost{
			ID:           issue.ID,
			Title:        issue.Title,
			Description:  issue.Description,
			Status:       issue.Status,
			Category:     categoryName(lookupCategory(cats, issue.CategoryID)),
			Address:      issue.Address,
			PhotoURL:     issue.PhotoURL,
			Upvotes:      issue.Upvotes,
			CreatedAt:    issue.CreatedAt,
			ReporterName: ListReporterName(issue, lookupUser(users, issue.UserID)),
			IsAnonymous:  issue.IsAnonymous,
		})
	}

	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return &FeedPage{Posts: posts, Total: total, Page: q.Page, Pages: pages, Results: len(posts)}, nil
}

// CheckDuplicate returns open issues near a point, most upvoted first.
// Without both coordinates there is nothing to compare against.
func (s *ComplaintService) CheckDuplicate(ctx context.Context, lat, lng *float64) ([]DuplicateCandidate, error) {
	if lat == nil || lng == nil {
		return []DuplicateCandidate{}, nil
	}
	issues, err := s.stores.Complaints.FindOpenWithin(ctx, BoxAround(*lat, *lng), DuplicateSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("find nearby complaints: %w", err)
	}
	cats, _, err := s.relations(ctx, issues, false)
	if err != nil {
		return nil, err
	}

	out := make([]DuplicateCandidate, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		out = append(out, DuplicateCandidate{
			ID:          issue.ID,
			Title:       issue.Title,
			Description: issue.Description,
			Status:      issue.Status,
			Upvotes:     issue.Upvotes,
			Address:     issue.Address,
			PhotoURL:    issue.PhotoURL,
			CreatedAt:   issue.CreatedAt,
			Category:    categoryName(lookupCategory(cats, issue.CategoryID)),
		})
	}
	return out, nil
}

// CheckFraud runs the fraud rules over the caller's own history.
func (s *ComplaintService) CheckFraud(ctx context.Context, userID primitive.ObjectID) (*FraudReport, error) {
	recent, err := s.stores.Complaints.CountByReporterSince(ctx, userID, s.fraud.WindowStart(s.now()))
	if err != nil {
		return nil, fmt.Errorf("count recent complaints: %w", err)
	}
	titles, err := s.stores.Complaints.RepeatedTitles(ctx, userID, s.fraud.MaxSameTitle+1)
	if err != nil {
		return nil, fmt.Errorf("find repeated titles: %w", err)
	}

	flags := []FraudFlag{}
	if f, ok := s.fraud.Velocity(recent); ok {
		flags = append(flags, f)
	}
	if len(titles) > 0 {
		flags = append(flags, duplicateTitleFlag)
	}
	return &FraudReport{Flags: flags, IsFlagged: len(flags) > 0}, nil
}

// Timeline lists an issue's events, newest first, with actor details.
func (s *ComplaintService) Timeline(ctx context.Context, ref string) ([]TimelineEntry, error) {
	issue, err := s.findIssue(ctx, ref)
	if err != nil {
		return nil, err
	}
	events, err := s.timeline.ForIssue(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}

	var actorIDs []primitive.ObjectID
	for _, e := range events {
		if e.UserID != nil {
			actorIDs = append(actorIDs, *e.UserID)
		}
	}
	actors := map[primitive.ObjectID]models.User{}
	if len(actorIDs) > 0 {
		if actors, err = s.stores.Users.FindByIDs(ctx, actorIDs); err != nil {
			return nil, fmt.Errorf("load timeline actors: %w", err)
		}
	}

	out := make([]TimelineEntry, 0, len(events))
	for _, e := range events {
		entry := TimelineEntry{
			ID:        e.ID,
			IssueID:   e.IssueID,
			UserID:    e.UserID,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		}
		if e.UserID != nil {
			if actor, ok := actors[*e.UserID]; ok {
				entry.UserName = actor.Name
				entry.UserRole = actor.Role
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// findIssue resolves a reference by primary id first and legacy numeric id
// second. The legacy lookup only exists for records migrated from the old
// store.
func (s *ComplaintService) findIssue(ctx context.Context, ref string) (*models.Issue, error) {
	ref = strings.TrimSpace(ref)
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		issue, err := s.stores.Complaints.FindByID(ctx, id)
		if err == nil {
			return issue, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("find complaint: %w", err)
		}
	}
	if legacyID, ok := parseLegacyID(ref); ok {
		issue, err := s.stores.Complaints.FindByLegacyID(ctx, legacyID)
		if err == nil {
			return issue, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("find complaint by legacy id: %w", err)
		}
	}
	return nil, newError(ErrNotFound, "Complaint not found")
}

func parseLegacyID(ref string) (int64, bool) {
	if ref == "" {
		return 0, false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	return id, err == nil
}

// relations batch-loads the categories (and optionally reporters) of issues.
func (s *ComplaintService) relations(ctx context.Context, issues []models.Issue, withUsers bool) (map[primitive.ObjectID]models.Category, map[primitive.ObjectID]models.User, error) {
	cats := map[primitive.ObjectID]models.Category{}
	users := map[primitive.ObjectID]models.User{}
	if len(issues) == 0 {
		return cats, users, nil
	}

	var catIDs, userIDs []primitive.ObjectID
	for _, issue := range issues {
		if issue.CategoryID != nil {
			catIDs = append(catIDs, *issue.CategoryID)
		}
		userIDs = append(userIDs, issue.UserID)
	}

	var err error
	if len(catIDs) > 0 {
		if cats, err = s.stores.Categories.FindByIDs(ctx, catIDs); err != nil {
			return nil, nil, fmt.Errorf("load categories: %w", err)
		}
	}
	if withUsers {
		if users, err = s.stores.Users.FindByIDs(ctx, userIDs); err != nil {
			return nil, nil, fmt.Errorf("load reporters: %w", err)
		}
	}
	return cats, users, nil
}

// dispatch hands a notification to the task runner. It never blocks.
func (s *ComplaintService) dispatch(name string, task Task) {
	if s.notifier == nil || s.tasks == nil {
		return
	}
	s.tasks.Submit(name, task)
}

func summarize(issue *models.Issue, cat *models.Category) ComplaintSummary {
	return ComplaintSummary{
		ID:            issue.ID,
		Title:         issue.Title,
		Description:   issue.Description,
		Status:        issue.Status,
		Priority:      issue.Priority,
		PriorityScore: issue.PriorityScore,
		Address:       issue.Address,
		PhotoURL:      issue.PhotoURL,
		Upvotes:       issue.Upvotes,
		CreatedAt:     issue.CreatedAt,
		UpdatedAt:     issue.UpdatedAt,
		SLADeadline:   issue.SLADeadline,
		Category:      categoryName(cat),
	}
}

func deriveTitle(description string) string {
	if description == "" {
		return untitledReport
	}
	runes := []rune(description)
	if len(runes) > maxDerivedTitle {
		runes = runes[:maxDerivedTitle]
	}
	return strings.TrimSpace(string(runes))
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func statusList() string {
	names := make([]string, len(models.Statuses))
	for i, st := range models.Statuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
