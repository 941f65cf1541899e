package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Inbox sizes.
const (
	notificationEventLimit = 50
	notificationVoteLimit  = 20
	maxNotifications       = 30
)

const (
	NotificationSystem       = "system"
	NotificationStatusChange = "status_change"
	NotificationResolution   = "resolution"
	NotificationUpvote       = "upvote"
)

// Notifications derives the caller's inbox from the timeline of their own
// issues and the votes those issues received, newest first.
func (s *ComplaintService) Notifications(ctx context.Context, userID primitive.ObjectID) ([]Notification, error) {
	issues, err := s.stores.Complaints.List(ctx, ListQuery{ReporterID: &userID, Sort: SortNewest})
	if err != nil {
		return nil, fmt.Errorf("list own complaints: %w", err)
	}
	if len(issues) == 0 {
		return []Notification{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(issues))
	titles := make(map[primitive.ObjectID]string, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.ID)
		titles[issue.ID] = issue.Title
	}

	events, err := s.timeline.ForIssues(ctx, ids, notificationEventLimit)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	votes, err := s.stores.Votes.RecentForIssues(ctx, ids, notificationVoteLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent votes: %w", err)
	}

	out := make([]Notification, 0, len(events)+len(votes))
	for _, e := range events {
		out = append(out, eventNotification(e, titleOf(titles, e.IssueID)))
	}
	out = append(out, voteNotifications(votes, titles)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	if len(out) > maxNotifications {
		out = out[:maxNotifications]
	}
	return out, nil
}

func eventNotification(e models.TimelineEvent, title string) Notification {
	n := Notification{
		ID:      e.ID.Hex(),
		Type:    NotificationSystem,
		Title:   "Update",
		Message: e.Details,
		Time:    e.CreatedAt,
		Link:    dashboardLink(e.IssueID),
	}

	switch e.Action {
	case models.ActionCreated:
		n.Title = "Report Submitted"
		n.Message = fmt.Sprintf("Your report %q was successfully submitted.", title)
	case models.ActionEscalated:
		n.Type = NotificationStatusChange
		n.Title = "Escalated!"
		n.Message = fmt.Sprintf("SLA deadline passed, %q has been escalated.", title)
	case models.ActionStatusUpdate:
		n.Type = NotificationStatusChange
		status := models.IssueStatus(strings.TrimPrefix(e.Details, "Status changed to "))
		switch status {
		case models.Resolved:
			n.Type = NotificationResolution
			n.Title = "Issue Resolved!"
			n.Message = fmt.Sprintf("%q has been resolved.", title)
		case models.Assigned:
			n.Title = "Assigned to Worker"
			n.Message = fmt.Sprintf("%q has been assigned to a department worker.", title)
		case models.InProgress:
			n.Title = "Work Started"
			n.Message = fmt.Sprintf("%q is now being worked on.", title)
		case models.Closed:
			n.Title = "Issue Closed"
			n.Message = fmt.Sprintf("%q has been closed.", title)
		default:
			n.Title = "Status Updated"
			n.Message = fmt.Sprintf("%q status changed to %s.", title, status)
		}
	}
	return n
}

// voteNotifications groups votes per issue into one notification each,
// stamped with the latest vote.
func voteNotifications(votes []models.Vote, titles map[primitive.ObjectID]string) []Notification {
	type group struct {
		count  int
		latest models.Vote
	}
	var order []primitive.ObjectID
	groups := map[primitive.ObjectID]*group{}
	for _, v := range votes {
		g, ok := groups[v.IssueID]
		if !ok {
			g = &group{latest: v}
			groups[v.IssueID] = g
			order = append(order, v.IssueID)
		}
		g.count++
		if v.CreatedAt.After(g.latest.CreatedAt) {
			g.latest = v
		}
	}

	out := make([]Notification, 0, len(order))
	for _, issueID := range order {
		g := groups[issueID]
		plural := ""
		if g.count > 1 {
			plural = "s"
		}
		out = append(out, Notification{
			ID:      "vote_" + issueID.Hex(),
			Type:    NotificationUpvote,
			Title:   "New Upvotes!",
			Message: fmt.Sprintf("%q received %d new upvote%s.", titleOf(titles, issueID), g.count, plural),
			Time:    g.latest.CreatedAt,
			Link:    dashboardLink(issueID),
		})
	}
	return out
}

func titleOf(titles map[primitive.ObjectID]string, id primitive.ObjectID) string {
	if t, ok := titles[id]; ok && t != "" {
		return t
	}
	return "Your complaint"
}

func dashboardLink(issueID primitive.ObjectID) string {
	return "/dashboard/" + issueID.Hex()
}
