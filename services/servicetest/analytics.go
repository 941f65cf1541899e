package servicetest

import (
	"context"
	"sort"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const uncategorized = "Uncategorized"

// Analytics implements services.AnalyticsStore over the in-memory issues.
type Analytics struct{ db *DB }

func (a *Analytics) CountByStatus(_ context.Context) (map[models.IssueStatus]int64, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	out := map[models.IssueStatus]int64{}
	for _, issue := range a.db.issues {
		out[issue.Status]++
	}
	return out, nil
}

func (a *Analytics) CountEscalated(_ context.Context) (int64, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	var n int64
	for _, issue := range a.db.issues {
		if issue.IsEscalated {
			n++
		}
	}
	return n, nil
}

func (a *Analytics) CategoryBreakdown(_ context.Context) ([]services.CategoryCount, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	names := a.categoryNames()
	counts := map[string]int64{}
	var order []string
	for _, issue := range a.db.issues {
		name := uncategorized
		if issue.CategoryID != nil {
			if n, ok := names[*issue.CategoryID]; ok {
				name = n
			}
		}
		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}
		counts[name]++
	}
	out := make([]services.CategoryCount, 0, len(order))
	for _, name := range order {
		out = append(out, services.CategoryCount{Category: name, Count: counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (a *Analytics) MonthlyTrends(_ context.Context, since time.Time) ([]services.MonthlyTrend, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	byMonth := map[string]*services.MonthlyTrend{}
	for _, issue := range a.db.issues {
		if issue.CreatedAt.Before(since) {
			continue
		}
		month := issue.CreatedAt.UTC().Format("2006-01")
		t, ok := byMonth[month]
		if !ok {
			t = &services.MonthlyTrend{Month: month}
			byMonth[month] = t
		}
		t.Total++
		if issue.Status == models.Resolved {
			t.Resolved++
		}
	}
	out := make([]services.MonthlyTrend, 0, len(byMonth))
	for _, t := range byMonth {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (a *Analytics) TopAreas(_ context.Context, limit int) ([]services.AreaCount, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	counts := map[string]int64{}
	var order []string
	for _, issue := range a.db.issues {
		if issue.Address == "" {
			continue
		}
		if _, seen := counts[issue.Address]; !seen {
			order = append(order, issue.Address)
		}
		counts[issue.Address]++
	}
	out := make([]services.AreaCount, 0, len(order))
	for _, addr := range order {
		out = append(out, services.AreaCount{Address: addr, Count: counts[addr]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return truncate(out, limit), nil
}

func (a *Analytics) HeatPoints(_ context.Context, since time.Time) ([]services.HeatPoint, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	names := a.categoryNames()
	var out []services.HeatPoint
	for _, issue := range a.db.issues {
		if !issue.HasLocation() || issue.CreatedAt.Before(since) {
			continue
		}
		out = append(out, services.HeatPoint{
			Latitude:      *issue.Latitude,
			Longitude:     *issue.Longitude,
			Status:        issue.Status,
			PriorityScore: issue.PriorityScore,
			Category:      categoryOf(names, issue.CategoryID),
			CreatedAt:     issue.CreatedAt,
		})
	}
	return out, nil
}

func (a *Analytics) NeglectedAreas(_ context.Context, limit int) ([]services.NeglectedArea, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	byAddr := map[string]*services.NeglectedArea{}
	var order []string
	for _, issue := range a.db.issues {
		if !issue.Status.Open() || issue.Address == "" {
			continue
		}
		area, ok := byAddr[issue.Address]
		if !ok {
			area = &services.NeglectedArea{Address: issue.Address, Oldest: issue.CreatedAt}
			byAddr[issue.Address] = area
			order = append(order, issue.Address)
		}
		area.Count++
		if issue.CreatedAt.Before(area.Oldest) {
			area.Oldest = issue.CreatedAt
		}
	}
	out := make([]services.NeglectedArea, 0, len(order))
	for _, addr := range order {
		out = append(out, *byAddr[addr])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Oldest.Before(out[j].Oldest)
	})
	return truncate(out, limit), nil
}

func (a *Analytics) CategoryDominance(_ context.Context, since time.Time, limit int) ([]services.AreaCategory, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	names := a.categoryNames()
	type key struct{ address, category string }
	counts := map[key]int64{}
	var order []key
	for _, issue := range a.db.issues {
		if issue.Address == "" || issue.CreatedAt.Before(since) {
			continue
		}
		k := key{address: issue.Address}
		if c := categoryOf(names, issue.CategoryID); c != nil {
			k.category = *c
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}
	out := make([]services.AreaCategory, 0, len(order))
	for _, k := range order {
		row := services.AreaCategory{Address: k.address, Count: counts[k]}
		if k.category != "" {
			c := k.category
			row.Category = &c
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return truncate(out, limit), nil
}

func (a *Analytics) categoryNames() map[primitive.ObjectID]string {
	names := make(map[primitive.ObjectID]string, len(a.db.categories))
	for _, c := range a.db.categories {
		names[c.ID] = c.Name
	}
	return names
}

func categoryOf(names map[primitive.ObjectID]string, id *primitive.ObjectID) *string {
	if id == nil {
		return nil
	}
	if n, ok := names[*id]; ok {
		return &n
	}
	return nil
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
