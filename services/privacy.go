package services

import (
	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AnonymousCitizen = "Anonymous Citizen"
	unknownReporter  = "Anonymous"
)

// Viewer is the authenticated caller. A nil *Viewer is a public visitor.
type Viewer struct {
	ID   primitive.ObjectID
	Role models.Role
}

// Privileged reports whether the viewer is an admin or worker.
func (v *Viewer) Privileged() bool {
	return v != nil && v.Role.Privileged()
}

// Owns reports whether the viewer reported the issue.
func (v *Viewer) Owns(issue *models.Issue) bool {
	return v != nil && issue != nil && v.ID == issue.UserID
}

// ReporterInfo is the reporter-identifying part of a projection.
type ReporterInfo struct {
	Name           string
	Email          *string
	UserID         *primitive.ObjectID
	ShowFraudFlags bool
}

// DetailReporter applies the detail-view rules: privileged viewers and the
// reporter see everything, anonymous issues hide everything, otherwise only
// the display name is shown.
func DetailReporter(viewer *Viewer, issue *models.Issue, reporter *models.User) ReporterInfo {
	if viewer.Privileged() || viewer.Owns(issue) {
		info := ReporterInfo{Name: unknownReporter, ShowFraudFlags: true}
		if reporter != nil {
			email := reporter.Email
			id := reporter.ID
			info.Name = reporter.Name
			info.Email = &email
			info.UserID = &id
		}
		return info
	}
	if issue.IsAnonymous {
		return ReporterInfo{Name: AnonymousCitizen}
	}
	return ReporterInfo{Name: displayName(reporter)}
}

// ListReporterName applies the list/feed variant: anonymous issues get the
// label, nothing else about the reporter is ever exposed by lists.
func ListReporterName(issue *models.Issue, reporter *models.User) string {
	if issue.IsAnonymous {
		return AnonymousCitizen
	}
	return displayName(reporter)
}

func displayName(reporter *models.User) string {
	if reporter == nil || reporter.Name == "" {
		return unknownReporter
	}
	return reporter.Name
}
