package services_test

import (
	"testing"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFraudRules(t *testing.T) {
	rules := services.DefaultFraudRules

	tests := []struct {
		name      string
		recent    int64
		sameTitle int64
		want      []string
	}{
		{"quiet", 0, 0, nil},
		{"at velocity limit", 5, 1, nil},
		{"over velocity limit", 6, 1, []string{services.FlagRateLimit}},
		{"repeated title", 1, 2, []string{services.FlagDuplicate}},
		{"both", 9, 3, []string{services.FlagRateLimit, services.FlagDuplicate}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := rules.Flags(tt.recent, tt.sameTitle)
			assert.NotNil(t, flags)
			var got []string
			for _, f := range flags {
				got = append(got, f.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(-10*time.Minute), rules.WindowStart(now))
}

func TestBoxAround(t *testing.T) {
	box := services.BoxAround(12.97, 77.59)

	assert.True(t, box.Contains(12.97, 77.59))
	assert.True(t, box.Contains(12.97+0.009, 77.59-0.009))
	assert.False(t, box.Contains(12.97+0.0091, 77.59))
	assert.False(t, box.Contains(12.97, 77.59+0.01))
}

func TestStartOfLocalDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 59, 0, 0, time.Local)
	start := services.StartOfLocalDay(now)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, start, services.StartOfLocalDay(start))
}

func TestDetailReporter(t *testing.T) {
	reporter := &models.User{ID: primitive.NewObjectID(), Name: "Asha", Email: "asha@example.com"}
	stranger := &services.Viewer{ID: primitive.NewObjectID(), Role: models.RoleCitizen}
	owner := &services.Viewer{ID: reporter.ID, Role: models.RoleCitizen}
	admin := &services.Viewer{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	anonymous := &models.Issue{UserID: reporter.ID, IsAnonymous: true}
	public := &models.Issue{UserID: reporter.ID}

	tests := []struct {
		name      string
		viewer    *services.Viewer
		issue     *models.Issue
		wantName  string
		wantEmail bool
		wantFlags bool
	}{
		{"admin on anonymous", admin, anonymous, "Asha", true, true},
		{"owner on anonymous", owner, anonymous, "Asha", true, true},
		{"stranger on anonymous", stranger, anonymous, services.AnonymousCitizen, false, false},
		{"visitor on anonymous", nil, anonymous, services.AnonymousCitizen, false, false},
		{"stranger on public", stranger, public, "Asha", false, false},
		{"visitor on public", nil, public, "Asha", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := services.DetailReporter(tt.viewer, tt.issue, reporter)
			assert.Equal(t, tt.wantName, info.Name)
			assert.Equal(t, tt.wantEmail, info.Email != nil)
			assert.Equal(t, tt.wantEmail, info.UserID != nil)
			assert.Equal(t, tt.wantFlags, info.ShowFraudFlags)
		})
	}

	assert.Equal(t, "Anonymous", services.DetailReporter(nil, public, nil).Name)
	assert.Equal(t, "Anonymous", services.DetailReporter(admin, public, nil).Name)
}

func TestListReporterName(t *testing.T) {
	reporter := &models.User{Name: "Asha"}

	assert.Equal(t, services.AnonymousCitizen, services.ListReporterName(&models.Issue{IsAnonymous: true}, reporter))
	assert.Equal(t, "Asha", services.ListReporterName(&models.Issue{}, reporter))
	assert.Equal(t, "Anonymous", services.ListReporterName(&models.Issue{}, nil))
}

func TestTransitions(t *testing.T) {
	for _, from := range models.Statuses {
		for _, to := range models.Statuses {
			assert.True(t, services.PermissiveTransitions(from, to))
		}
	}

	assert.True(t, services.StrictTransitions(models.Submitted, models.Assigned))
	assert.True(t, services.StrictTransitions(models.Resolved, models.InProgress))
	assert.True(t, services.StrictTransitions(models.Closed, models.Closed))
	assert.False(t, services.StrictTransitions(models.Closed, models.Submitted))
	assert.False(t, services.StrictTransitions(models.Resolved, models.Submitted))
	assert.False(t, services.StrictTransitions(models.Assigned, models.Submitted))
}
