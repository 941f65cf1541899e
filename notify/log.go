package notify

import (
	"context"
	"log"

	"civicpulse-be/models"
	"civicpulse-be/services"
)

// LogNotifier writes notifications to the log. It stands in when no mail
// relay is configured.
type LogNotifier struct{}

var _ services.Notifier = LogNotifier{}

func (LogNotifier) ComplaintFiled(_ context.Context, reporter *models.User, issue *models.Issue) error {
	log.Printf("notify: complaint %s filed by %s", issue.ID.Hex(), reporterEmail(reporter))
	return nil
}

func (LogNotifier) AdminAlert(_ context.Context, issue *models.Issue) error {
	log.Printf("notify: admin alert for complaint %s (%q)", issue.ID.Hex(), issue.Title)
	return nil
}

func (LogNotifier) StatusChanged(_ context.Context, reporter *models.User, issue *models.Issue, status models.IssueStatus) error {
	log.Printf("notify: complaint %s is now %s, telling %s", issue.ID.Hex(), status, reporterEmail(reporter))
	return nil
}

func (LogNotifier) Welcome(_ context.Context, user *models.User) error {
	log.Printf("notify: welcome %s", user.Email)
	return nil
}

func reporterEmail(u *models.User) string {
	if u == nil {
		return "unknown reporter"
	}
	return u.Email
}
