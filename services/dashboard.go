package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"civicpulse-be/models"
)

// AnalyticsStore runs the aggregate queries behind the dashboards.
type AnalyticsStore interface {
	CountByStatus(ctx context.Context) (map[models.IssueStatus]int64, error)
	CountEscalated(ctx context.Context) (int64, error)
	CategoryBreakdown(ctx context.Context) ([]CategoryCount, error)
	MonthlyTrends(ctx context.Context, since time.Time) ([]MonthlyTrend, error)
	TopAreas(ctx context.Context, limit int) ([]AreaCount, error)
	HeatPoints(ctx context.Context, since time.Time) ([]HeatPoint, error)
	// NeglectedAreas groups open issues by address, most issues first and
	// oldest first among equals.
	NeglectedAreas(ctx context.Context, limit int) ([]NeglectedArea, error)
	CategoryDominance(ctx context.Context, since time.Time, limit int) ([]AreaCategory, error)
}

// Cache stores small JSON-serialisable values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type CategoryCount struct {
	Category string `json:"category" bson:"category"`
	Count    int64  `json:"count" bson:"count"`
}

type StatusCount struct {
	Status models.IssueStatus `json:"status"`
	Count  int64              `json:"count"`
}

type MonthlyTrend struct {
	Month    string `json:"month" bson:"month"`
	Total    int64  `json:"total" bson:"total"`
	Resolved int64  `json:"resolved" bson:"resolved"`
}

type AreaCount struct {
	Address string `json:"address" bson:"address"`
	Count   int64  `json:"count" bson:"count"`
}

type HeatPoint struct {
	Latitude      float64            `json:"latitude" bson:"latitude"`
	Longitude     float64            `json:"longitude" bson:"longitude"`
	Status        models.IssueStatus `json:"status" bson:"status"`
	PriorityScore float64            `json:"priority_score" bson:"priority_score"`
	Category      *string            `json:"category" bson:"category,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

type NeglectedArea struct {
	Address    string    `json:"address" bson:"address"`
	Count      int64     `json:"count" bson:"count"`
	Oldest     time.Time `json:"-" bson:"oldest"`
	OldestDays int64     `json:"oldest_days" bson:"-"`
}

type AreaCategory struct {
	Address  string  `json:"address" bson:"address"`
	Category *string `json:"category" bson:"category,omitempty"`
	Count    int64   `json:"count" bson:"count"`
}

type Stats struct {
	Total      int64 `json:"total"`
	Submitted  int64 `json:"submitted"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
	Escalated  int64 `json:"escalated"`
}

type PublicStats struct {
	TotalComplaints int64 `json:"total_complaints"`
	Resolved        int64 `json:"resolved"`
	ActiveCitizens  int64 `json:"active_citizens"`
}

type Analytics struct {
	ByCategory    []CategoryCount `json:"byCategory"`
	ByStatus      []StatusCount   `json:"byStatus"`
	MonthlyTrends []MonthlyTrend  `json:"monthlyTrends"`
	TopAreas      []AreaCount     `json:"topAreas"`
}

type Heatmap struct {
	Points            []HeatPoint     `json:"points"`
	NeglectedAreas    []NeglectedArea `json:"neglectedAreas"`
	CategoryDominance []AreaCategory  `json:"categoryDominance"`
}

// Dashboard limits.
const (
	DefaultHeatmapDays   = 30
	trendMonths          = 6
	topAreasLimit        = 5
	neglectedAreasLimit  = 10
	dominanceLimit       = 20
	publicStatsCacheKey  = "stats:public"
	publicStatsCacheTTL  = time.Minute
	maxHeatmapPeriodDays = 365
	hoursPerDay          = 24
)

// DashboardService serves the aggregate views.
type DashboardService struct {
	analytics AnalyticsStore
	users     UserStore
	cache     Cache
	now       func() time.Time
}

// NewDashboardService builds the service. cache may be nil.
func NewDashboardService(analytics AnalyticsStore, users UserStore, cache Cache, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{analytics: analytics, users: users, cache: cache, now: now}
}

func (d *DashboardService) Stats(ctx context.Context) (*Stats, error) {
	counts, err := d.analytics.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	escalated, err := d.analytics.CountEscalated(ctx)
	if err != nil {
		return nil, fmt.Errorf("count escalated: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return &Stats{
		Total:      total,
		Submitted:  counts[models.Submitted],
		InProgress: counts[models.InProgress],
		Resolved:   counts[models.Resolved],
		Closed:     counts[models.Closed],
		Escalated:  escalated,
	}, nil
}

// PublicStats backs the landing page. Results are cached briefly when a
// cache is configured; cache failures fall through to the store.
func (d *DashboardService) PublicStats(ctx context.Context) (*PublicStats, error) {
	if d.cache != nil {
		var cached PublicStats
		ok, err := d.cache.Get(ctx, publicStatsCacheKey, &cached)
		if err != nil {
			log.Printf("public stats cache read failed: %v", err)
		} else if ok {
			return &cached, nil
		}
	}

	counts, err := d.analytics.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	citizens, err := d.users.CountCitizens(ctx)
	if err != nil {
		return nil, fmt.Errorf("count citizens: %w", err)
	}

	stats := &PublicStats{ActiveCitizens: citizens}
	for status, n := range counts {
		stats.TotalComplaints += n
		if !status.Open() {
			stats.Resolved += n
		}
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, publicStatsCacheKey, stats, publicStatsCacheTTL); err != nil {
			log.Printf("public stats cache write failed: %v", err)
		}
	}
	return stats, nil
}

func (d *DashboardService) Analytics(ctx context.Context) (*Analytics, error) {
	byCategory, err := d.analytics.CategoryBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	counts, err := d.analytics.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	trends, err := d.analytics.MonthlyTrends(ctx, d.now().AddDate(0, -trendMonths, 0))
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	areas, err := d.analytics.TopAreas(ctx, topAreasLimit)
	if err != nil {
		return nil, fmt.Errorf("top areas: %w", err)
	}

	byStatus := []StatusCount{}
	for _, status := range models.Statuses {
		if n := counts[status]; n > 0 {
			byStatus = append(byStatus, StatusCount{Status: status, Count: n})
		}
	}

	return &Analytics{
		ByCategory:    orEmpty(byCategory),
		ByStatus:      byStatus,
		MonthlyTrends: orEmpty(trends),
		TopAreas:      orEmpty(areas),
	}, nil
}

// Heatmap returns located issues from the last periodDays days together
// with the most neglected areas and the dominant category per area.
func (d *DashboardService) Heatmap(ctx context.Context, periodDays int) (*Heatmap, error) {
	if periodDays <= 0 {
		periodDays = DefaultHeatmapDays
	}
	if periodDays > maxHeatmapPeriodDays {
		periodDays = maxHeatmapPeriodDays
	}
	now := d.now()
	cutoff := now.Add(-time.Duration(periodDays) * hoursPerDay * time.Hour)

	points, err := d.analytics.HeatPoints(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("heat points: %w", err)
	}
	neglected, err := d.analytics.NeglectedAreas(ctx, neglectedAreasLimit)
	if err != nil {
		return nil, fmt.Errorf("neglected areas: %w", err)
	}
	dominance, err := d.analytics.CategoryDominance(ctx, cutoff, dominanceLimit)
	if err != nil {
		return nil, fmt.Errorf("category dominance: %w", err)
	}

	for i := range neglected {
		neglected[i].OldestDays = int64(now.Sub(neglected[i].Oldest) / (hoursPerDay * time.Hour))
	}

	return &Heatmap{
		Points:            orEmpty(points),
		NeglectedAreas:    orEmpty(neglected),
		CategoryDominance: orEmpty(dominance),
	}, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
