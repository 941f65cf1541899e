package services

import "civicpulse-be/models"

// TransitionPolicy decides whether an issue may move between two statuses.
type TransitionPolicy func(from, to models.IssueStatus) bool

// PermissiveTransitions allows any status to be set from any other,
// including regressions such as Closed -> Submitted.
func PermissiveTransitions(from, to models.IssueStatus) bool {
	return true
}

var strictGraph = map[models.IssueStatus][]models.IssueStatus{
	models.Submitted:  {models.Assigned, models.InProgress, models.Resolved, models.Closed},
	models.Assigned:   {models.InProgress, models.Resolved, models.Closed},
	models.InProgress: {models.Assigned, models.Resolved, models.Closed},
	models.Resolved:   {models.InProgress, models.Closed},
	models.Closed:     {},
}

// StrictTransitions only allows forward moves, reopening a resolved issue,
// and re-setting the current status. Closed is terminal.
func StrictTransitions(from, to models.IssueStatus) bool {
	if from == to {
		return true
	}
	for _, next := range strictGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}
