package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"civicpulse-be/models"
)

const escalationBatch = 200

// EscalateOverdue flags open issues whose SLA deadline has passed and logs an
// Escalated event on each. It returns how many issues it flagged.
func (s *ComplaintService) EscalateOverdue(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.stores.Complaints.ListOverdue(ctx, now, escalationBatch)
	if err != nil {
		return 0, fmt.Errorf("list overdue: %w", err)
	}

	flagged := 0
	for _, issue := range overdue {
		changed, err := s.stores.Complaints.MarkEscalated(ctx, issue.ID, now)
		if err != nil {
			return flagged, fmt.Errorf("escalate %s: %w", issue.ID.Hex(), err)
		}
		if !changed {
			continue
		}
		flagged++
		late := now.Sub(issue.SLADeadline).Round(time.Hour)
		s.timeline.Append(ctx, issue.ID, nil, models.ActionEscalated, fmt.Sprintf("SLA deadline missed by %s", late))
	}
	return flagged, nil
}

// WatchSLA runs EscalateOverdue every interval until ctx is done.
func (s *ComplaintService) WatchSLA(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.EscalateOverdue(ctx)
			if err != nil {
				log.Printf("sla sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sla sweep escalated %d issue(s)", n)
			}
		}
	}
}
