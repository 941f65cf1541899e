package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCreateComplaintRequiresTitleOrDescription(t *testing.T) {
	f := newFixture(t)
	before := f.points(f.reporter)

	for _, in := range []services.NewComplaint{
		{},
		{Title: "   ", Description: "\n\t"},
		{Address: "MG Road", CategoryName: "Pothole"},
	} {
		_, err := f.svc.CreateComplaint(context.Background(), &f.reporter, in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, services.ErrValidation))
	}

	assert.Zero(t, f.db.IssueCount())
	assert.Zero(t, f.db.EventCount())
	assert.Empty(t, f.tasks.Names())
	assert.Equal(t, before, f.points(f.reporter))
}

func TestCreateComplaintDailyLimit(t *testing.T) {
	f := newFixture(t)
	midnight := services.StartOfLocalDay(f.now)

	// Yesterday's complaints do not count.
	for i := 0; i < 5; i++ {
		f.seedIssue(f.reporter, "old", midnight.Add(-time.Hour))
	}
	for i := 0; i < 9; i++ {
		f.seedIssue(f.reporter, "today", midnight.Add(time.Duration(i)*time.Minute))
	}

	_, err := f.svc.CreateComplaint(context.Background(), &f.reporter, services.NewComplaint{Title: "tenth"})
	require.NoError(t, err)

	count := f.db.IssueCount()
	_, err = f.svc.CreateComplaint(context.Background(), &f.reporter, services.NewComplaint{Title: "eleventh"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrRateLimited))
	assert.Equal(t, count, f.db.IssueCount())

	// Other reporters are unaffected.
	_, err = f.svc.CreateComplaint(context.Background(), &f.citizen, services.NewComplaint{Title: "mine"})
	assert.NoError(t, err)
}

func TestCreateComplaintResolvesCategoryByName(t *testing.T) {
	f := newFixture(t)
	pothole := f.db.AddCategory(models.Category{Name: "Pothole", Department: "Roads", SLAHours: 168, BasePriority: 5})

	for _, name := range []string{"pothole", "POTHOLE", " Pothole "} {
		id := f.mustCreate(t, f.reporter, services.NewComplaint{Title: "Crater", CategoryName: name})
		issue, ok := f.db.Issue(id)
		require.True(t, ok)
		require.NotNil(t, issue.CategoryID, name)
		assert.Equal(t, pothole.ID, *issue.CategoryID)
		assert.Equal(t, f.now.Add(168*time.Hour), issue.SLADeadline)
	}
}

func TestCreateComplaintDefaultsSLAWithoutCategory(t *testing.T) {
	f := newFixture(t)
	f.db.AddCategory(models.Category{Name: "Pothole", SLAHours: 168})

	id := f.mustCreate(t, f.reporter, services.NewComplaint{Title: "Strange smell", CategoryName: "Odour"})
	issue, _ := f.db.Issue(id)
	assert.Nil(t, issue.CategoryID)
	assert.Equal(t, f.now.Add(24*time.Hour), issue.SLADeadline)
}

func TestCreateComplaintPrefersCategoryReference(t *testing.T) {
	f := newFixture(t)
	f.db.AddCategory(models.Category{Name: "Pothole", SLAHours: 168})
	water := f.db.AddCategory(models.Category{Name: "Water Supply", SLAHours: 12})

	id := f.mustCreate(t, f.reporter, services.NewComplaint{
		Title:        "Leak",
		CategoryID:   water.ID.Hex(),
		CategoryName: "Pothole",
	})
	issue, _ := f.db.Issue(id)
	require.NotNil(t, issue.CategoryID)
	assert.Equal(t, water.ID, *issue.CategoryID)
	assert.Equal(t, f.now.Add(12*time.Hour), issue.SLADeadline)
}

func TestCreateComplaintDerivesTitle(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("ü", 50) + strings.Repeat("x", 50)

	id := f.mustCreate(t, f.reporter, services.NewComplaint{Description: long})
	issue, _ := f.db.Issue(id)
	assert.Equal(t, 80, len([]rune(issue.Title)))
	assert.True(t, strings.HasPrefix(long, issue.Title))
	assert.Equal(t, long, issue.Description)

	id = f.mustCreate(t, f.reporter, services.NewComplaint{Description: "Broken bench"})
	issue, _ = f.db.Issue(id)
	assert.Equal(t, "Broken bench", issue.Title)
}

func TestCreateComplaintSideEffects(t *testing.T) {
	f := newFixture(t)
	before := f.points(f.reporter)

	created, err := f.svc.CreateComplaint(context.Background(), &f.reporter, services.NewComplaint{
		Title:       "Streetlight out",
		Latitude:    ptr(12.97),
		Longitude:   ptr(77.59),
		Address:     "Church Street",
		PhotoURL:    ptr("https://img.example/1.jpg"),
		IsPublic:    true,
		IsAnonymous: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.Submitted, created.Status)
	assert.Equal(t, models.Medium, created.Priority)
	assert.Equal(t, "Streetlight out", created.Title)
	assert.Equal(t, f.now, created.CreatedAt)

	issue, ok := f.db.Issue(created.ID)
	require.True(t, ok)
	assert.True(t, issue.IsPublic)
	assert.True(t, issue.IsAnonymous)
	assert.Zero(t, issue.Upvotes)

	assert.Equal(t, before+services.PointsForComplaint, f.points(f.reporter))

	events := f.db.Events(created.ID)
	require.Len(t, events, 1)
	assert.Equal(t, models.ActionCreated, events[0].Action)
	assert.Equal(t, "Report submitted successfully", events[0].Details)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, f.reporter.ID, *events[0].UserID)

	assert.Equal(t, []string{"complaint-filed", "admin-alert"}, f.tasks.Names())

	f.notifier.EXPECT().
		ComplaintFiled(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, reporter *models.User, issue *models.Issue) error {
			assert.Equal(t, f.reporter.Email, reporter.Email)
			assert.Equal(t, created.ID, issue.ID)
			return nil
		})
	f.notifier.EXPECT().AdminAlert(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	errs := f.tasks.RunAll(context.Background())
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
}

func TestCreateComplaintSurvivesSideEffectFailures(t *testing.T) {
	f := newFixture(t)
	f.db.TimelineErr = errors.New("timeline unavailable")
	f.db.PointsErr = errors.New("points unavailable")
	f.tasks.Reject = true

	created, err := f.svc.CreateComplaint(context.Background(), &f.reporter, services.NewComplaint{Title: "Garbage pile"})
	require.NoError(t, err)

	_, ok := f.db.Issue(created.ID)
	assert.True(t, ok)
	assert.Zero(t, f.db.EventCount())
}

func TestUpdateStatusRequiresResolutionPhoto(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(f.reporter, "Pothole", f.now)

	for _, actor := range []*services.Viewer{nil, f.viewer(f.citizen), f.viewer(f.admin), f.viewer(f.worker)} {
		for _, photo := range []*string{nil, ptr(""), ptr("  ")} {
			_, err := f.svc.UpdateStatus(context.Background(), actor, issue.ID.Hex(), models.Resolved, photo)
			require.Error(t, err)
			assert.True(t, errors.Is(err, services.ErrValidation))
		}
	}

	stored, _ := f.db.Issue(issue.ID)
	assert.Equal(t, models.Submitted, stored.Status)
	assert.Zero(t, f.db.EventCount())
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(f.reporter, "Pothole", f.now)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, f.viewer(f.admin), issue.ID.Hex(), models.IssueStatus("Done"), nil)
	assert.True(t, errors.Is(err, services.ErrValidation))

	_, err = f.svc.UpdateStatus(ctx, f.viewer(f.citizen), issue.ID.Hex(), models.InProgress, nil)
	assert.True(t, errors.Is(err, services.ErrForbidden))

	_, err = f.svc.UpdateStatus(ctx, f.viewer(f.admin), "64b7f0c2a1b2c3d4e5f60718", models.InProgress, nil)
	assert.True(t, errors.Is(err, services.ErrNotFound))

	_, err = f.svc.UpdateStatus(ctx, f.viewer(f.admin), "not-an-id", models.InProgress, nil)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestUpdateStatusResolvesAndCreditsReporter(t *testing.T) {
	for _, actor := range []models.Role{models.RoleAdmin, models.RoleWorker} {
		t.Run(string(actor), func(t *testing.T) {
			f := newFixture(t)
			issue := f.seedIssue(f.reporter, "Pothole", f.now.Add(-48*time.Hour))
			resolver := f.admin
			if actor == models.RoleWorker {
				resolver = f.worker
			}
			reporterBefore, resolverBefore := f.points(f.reporter), f.points(resolver)
			f.now = f.now.Add(time.Hour)

			res, err := f.svc.UpdateStatus(context.Background(), f.viewer(resolver), issue.ID.Hex(), models.Resolved, ptr("https://img.example/fixed.jpg"))
			require.NoError(t, err)
			assert.Equal(t, models.Resolved, res.Status)
			assert.Equal(t, f.now, res.UpdatedAt)
			require.NotNil(t, res.ResolutionPhotoURL)
			assert.Equal(t, "https://img.example/fixed.jpg", *res.ResolutionPhotoURL)

			stored, _ := f.db.Issue(issue.ID)
			require.NotNil(t, stored.ResolvedAt)
			assert.Equal(t, f.now, *stored.ResolvedAt)

			assert.Equal(t, reporterBefore+50, f.points(f.reporter))
			assert.Equal(t, resolverBefore, f.points(resolver))

			events := f.db.Events(issue.ID)
			require.Len(t, events, 1)
			assert.Equal(t, models.ActionStatusUpdate, events[0].Action)
			assert.Equal(t, "Status changed to Resolved", events[0].Details)
			assert.Equal(t, resolver.ID, *events[0].UserID)

			assert.Equal(t, []string{"status-changed"}, f.tasks.Names())
			f.notifier.EXPECT().
				StatusChanged(gomock.Any(), gomock.Any(), gomock.Any(), models.Resolved).
				DoAndReturn(func(_ context.Context, reporter *models.User, issue *models.Issue, _ models.IssueStatus) error {
					assert.Equal(t, f.reporter.ID, reporter.ID)
					assert.Equal(t, models.Resolved, issue.Status)
					return nil
				})
			for _, err := range f.tasks.RunAll(context.Background()) {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateStatusPaysEveryResolution(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(f.reporter, "Pothole", f.now)
	before := f.points(f.reporter)
	photo := ptr("https://img.example/fixed.jpg")

	for _, actor := range []models.User{f.admin, f.worker} {
		_, err := f.svc.UpdateStatus(context.Background(), f.viewer(actor), issue.ID.Hex(), models.Resolved, photo)
		require.NoError(t, err)
	}
	assert.Equal(t, before+100, f.points(f.reporter))
	assert.Len(t, f.db.Events(issue.ID), 2)
}

func TestUpdateStatusSingleResolutionReward(t *testing.T) {
	f := newFixture(t, services.WithSingleResolutionReward())
	issue := f.seedIssue(f.reporter, "Pothole", f.now)
	before := f.points(f.reporter)
	photo := ptr("https://img.example/fixed.jpg")

	for i := 0; i < 2; i++ {
		_, err := f.svc.UpdateStatus(context.Background(), f.viewer(f.admin), issue.ID.Hex(), models.Resolved, photo)
		require.NoError(t, err)
	}
	assert.Equal(t, before+50, f.points(f.reporter))

	_, err := f.svc.UpdateStatus(context.Background(), f.viewer(f.admin), issue.ID.Hex(), models.InProgress, nil)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), f.viewer(f.admin), issue.ID.Hex(), models.Resolved, photo)
	require.NoError(t, err)
	assert.Equal(t, before+100, f.points(f.reporter), "reopening and resolving again pays again")
}

func TestUpdateStatusTransitionPolicies(t *testing.T) {
	ctx := context.Background()

	permissive := newFixture(t)
	closed := permissive.seedIssue(permissive.reporter, "Old", permissive.now)
	_, err := permissive.svc.UpdateStatus(ctx, permissive.viewer(permissive.admin), closed.ID.Hex(), models.Closed, nil)
	require.NoError(t, err)
	_, err = permissive.svc.UpdateStatus(ctx, permissive.viewer(permissive.admin), closed.ID.Hex(), models.Submitted, nil)
	assert.NoError(t, err)

	strict := newFixture(t, services.WithTransitionPolicy(services.StrictTransitions))
	closed = strict.seedIssue(strict.reporter, "Old", strict.now)
	_, err = strict.svc.UpdateStatus(ctx, strict.viewer(strict.admin), closed.ID.Hex(), models.Closed, nil)
	require.NoError(t, err)
	_, err = strict.svc.UpdateStatus(ctx, strict.viewer(strict.admin), closed.ID.Hex(), models.Submitted, nil)
	assert.True(t, errors.Is(err, services.ErrValidation))
	stored, _ := strict.db.Issue(closed.ID)
	assert.Equal(t, models.Closed, stored.Status)
}

func TestUpdateStatusAcceptsLegacyID(t *testing.T) {
	f := newFixture(t)
	legacy := f.db.AddIssue(models.Issue{
		LegacyID:  ptr(int64(42)),
		UserID:    f.reporter.ID,
		Title:     "Migrated",
		Status:    models.Submitted,
		CreatedAt: f.now,
	})

	res, err := f.svc.UpdateStatus(context.Background(), f.viewer(f.worker), "42", models.InProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, res.ID)
	assert.Equal(t, models.InProgress, res.Status)

	_, err = f.svc.UpdateStatus(context.Background(), f.viewer(f.worker), "43", models.InProgress, nil)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}
