package services_test

import (
	"context"
	"testing"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"
	"civicpulse-be/services/mocks"
	"civicpulse-be/services/servicetest"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.Local)

type fixture struct {
	db       *servicetest.DB
	tasks    *servicetest.Tasks
	notifier *mocks.MockNotifier
	svc      *services.ComplaintService
	now      time.Time

	reporter models.User
	citizen  models.User
	admin    models.User
	worker   models.User
}

func newFixture(t *testing.T, opts ...services.Option) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		db:       servicetest.New(),
		tasks:    &servicetest.Tasks{},
		notifier: mocks.NewMockNotifier(ctrl),
		now:      testNow,
	}
	f.reporter = f.db.AddUser(models.User{Name: "Asha Rao", Email: "asha@example.com", Role: models.RoleCitizen, IsVerified: true})
	f.citizen = f.db.AddUser(models.User{Name: "Ben Okafor", Email: "ben@example.com", Role: models.RoleCitizen, IsVerified: true})
	f.admin = f.db.AddUser(models.User{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin, IsVerified: true})
	f.worker = f.db.AddUser(models.User{Name: "Field Worker", Email: "worker@example.com", Role: models.RoleWorker, IsVerified: true})

	opts = append([]services.Option{services.WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = services.NewComplaintService(f.db.Stores(), f.notifier, f.tasks, opts...)
	return f
}

func (f *fixture) viewer(u models.User) *services.Viewer {
	return &services.Viewer{ID: u.ID, Role: u.Role}
}

func (f *fixture) points(u models.User) int {
	got, _ := f.db.User(u.ID)
	return got.Points
}

// seedIssue stores an issue for the reporter created at the given time.
func (f *fixture) seedIssue(reporter models.User, title string, createdAt time.Time) models.Issue {
	return f.db.AddIssue(models.Issue{
		UserID:      reporter.ID,
		Title:       title,
		Description: title,
		Status:      models.Submitted,
		Priority:    models.Medium,
		IsPublic:    true,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		SLADeadline: createdAt.Add(24 * time.Hour),
	})
}

func (f *fixture) mustCreate(t *testing.T, reporter models.User, in services.NewComplaint) primitive.ObjectID {
	t.Helper()
	created, err := f.svc.CreateComplaint(context.Background(), &reporter, in)
	if err != nil {
		t.Fatalf("create complaint: %v", err)
	}
	return created.ID
}

func ptr[T any](v T) *T {
	return &v
}
