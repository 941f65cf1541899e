// Package notify delivers complaint lifecycle emails.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"
)

//go:embed templates/*.html
var templateFS embed.FS

var statusColors = map[models.IssueStatus]string{
	models.Submitted:  "#6366f1",
	models.Assigned:   "#3b82f6",
	models.InProgress: "#f59e0b",
	models.Resolved:   "#10b981",
	models.Closed:     "#6b7280",
}

// Message is a rendered email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer sends a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EmailNotifier renders lifecycle emails and hands them to a Mailer.
type EmailNotifier struct {
	mailer     Mailer
	adminEmail string
	pages      map[string]*template.Template
	now        func() time.Time
}

var _ services.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(mailer Mailer, adminEmail string) (*EmailNotifier, error) {
	n := &EmailNotifier{
		mailer:     mailer,
		adminEmail: adminEmail,
		pages:      map[string]*template.Template{},
		now:        time.Now,
	}
	for _, page := range []string{"filed", "status", "admin_alert", "welcome"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		n.pages[page] = t
	}
	return n, nil
}

type issueData struct {
	Heading     string
	Year        int
	ShortID     string
	Title       string
	Address     string
	Description string
	Status      models.IssueStatus
	Color       string
	Resolved    bool
	Points      int
	Name        string
}

func (n *EmailNotifier) ComplaintFiled(ctx context.Context, reporter *models.User, issue *models.Issue) error {
	if reporter == nil || reporter.Email == "" {
		return nil
	}
	data := n.issueData("Report Confirmation", issue, models.Submitted)
	return n.send(ctx, "filed", data, reporter.Email,
		fmt.Sprintf("Report Filed: %s - CivicPulse", orDefault(issue.Title, "New Issue")))
}

func (n *EmailNotifier) AdminAlert(ctx context.Context, issue *models.Issue) error {
	if n.adminEmail == "" {
		log.Printf("no admin email configured, skipping alert for %s", issue.ID.Hex())
		return nil
	}
	data := n.issueData("Admin Alert", issue, issue.Status)
	return n.send(ctx, "admin_alert", data, n.adminEmail,
		fmt.Sprintf("New Report: %s - CivicPulse Admin", orDefault(issue.Title, "Issue")))
}

func (n *EmailNotifier) StatusChanged(ctx context.Context, reporter *models.User, issue *models.Issue, status models.IssueStatus) error {
	if reporter == nil || reporter.Email == "" {
		return nil
	}
	data := n.issueData("Status Update", issue, status)
	data.Resolved = status == models.Resolved
	data.Points = services.PointsForResolution
	return n.send(ctx, "status", data, reporter.Email,
		fmt.Sprintf("Status Update: %s -> %s - CivicPulse", orDefault(issue.Title, "Issue"), status))
}

func (n *EmailNotifier) Welcome(ctx context.Context, user *models.User) error {
	data := issueData{
		Heading: "Welcome",
		Year:    n.now().Year(),
		Name:    orDefault(user.Name, "there"),
		Points:  services.PointsForSignup,
	}
	return n.send(ctx, "welcome", data, user.Email,
		fmt.Sprintf("Welcome to CivicPulse, %s!", orDefault(user.Name, "friend")))
}

func (n *EmailNotifier) issueData(heading string, issue *models.Issue, status models.IssueStatus) issueData {
	id := issue.ID.Hex()
	color, ok := statusColors[status]
	if !ok {
		color = statusColors[models.Closed]
	}
	return issueData{
		Heading:     heading,
		Year:        n.now().Year(),
		ShortID:     id[:12],
		Title:       orDefault(issue.Title, "Untitled"),
		Address:     orDefault(issue.Address, "Not specified"),
		Description: truncate(orDefault(issue.Description, "No description"), 120),
		Status:      status,
		Color:       color,
	}
}

func (n *EmailNotifier) send(ctx context.Context, page string, data issueData, to, subject string) error {
	var buf bytes.Buffer
	if err := n.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s email: %w", page, err)
	}
	if err := n.mailer.Send(ctx, Message{To: []string{to}, Subject: subject, HTML: buf.String()}); err != nil {
		return fmt.Errorf("send %s email to %s: %w", page, to, err)
	}
	log.Printf("%s email sent to %s", page, to)
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
