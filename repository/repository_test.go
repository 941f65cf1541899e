package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/repository"
	"civicpulse-be/services"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func newDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("civicpulse_test")
	require.NoError(t, repository.EnsureIndexes(ctx, db))
	return db
}

func TestConcurrentVoteTogglesKeepCountInSync(t *testing.T) {
	db := newDatabase(t)
	stores := repository.NewStores(db)
	ctx := context.Background()

	voter := &models.User{Name: "Voter", Email: "voter@example.com", Role: models.RoleCitizen}
	require.NoError(t, stores.Users.Create(ctx, voter))
	issue := &models.Issue{UserID: voter.ID, Title: "Pothole", Status: models.Submitted, CreatedAt: time.Now()}
	require.NoError(t, stores.Complaints.Create(ctx, issue))

	svc := services.NewComplaintService(stores, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ToggleVote(ctx, voter.ID, issue.ID.Hex())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := stores.Complaints.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	live, err := stores.Votes.CountByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, live, int64(1))
	assert.Equal(t, int(live), stored.Upvotes)
}

func TestVoteUniqueIndex(t *testing.T) {
	db := newDatabase(t)
	votes := repository.NewStores(db).Votes
	ctx := context.Background()

	issueID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	require.NoError(t, votes.Insert(ctx, &models.Vote{IssueID: issueID, UserID: userID}))
	err := votes.Insert(ctx, &models.Vote{IssueID: issueID, UserID: userID})
	assert.True(t, errors.Is(err, services.ErrConflict))

	removed, err := votes.Delete(ctx, issueID, userID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = votes.Delete(ctx, issueID, userID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestComplaintRepository(t *testing.T) {
	db := newDatabase(t)
	complaints := repository.NewStores(db).Complaints
	ctx := context.Background()

	reporter := primitive.NewObjectID()
	legacy := int64(42)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lat, lng := 12.9716, 77.5946

	seed := []*models.Issue{
		{UserID: reporter, Title: "Leak", Status: models.Submitted, IsPublic: true, Latitude: &lat, Longitude: &lng, Upvotes: 3, CreatedAt: base},
		{UserID: reporter, Title: "Leak", Status: models.Resolved, IsPublic: false, Latitude: &lat, Longitude: &lng, CreatedAt: base.Add(time.Hour)},
		{UserID: primitive.NewObjectID(), Title: "Light", Status: models.InProgress, IsPublic: true, LegacyID: &legacy, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, issue := range seed {
		require.NoError(t, complaints.Create(ctx, issue))
	}

	found, err := complaints.FindByLegacyID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, seed[2].ID, found.ID)
	_, err = complaints.FindByID(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, services.ErrNotFound))

	n, err := complaints.CountByReporterSince(ctx, reporter, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	titles, err := complaints.RepeatedTitles(ctx, reporter, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leak"}, titles)

	nearby, err := complaints.FindOpenWithin(ctx, services.BoxAround(lat, lng), 5)
	require.NoError(t, err)
	require.Len(t, nearby, 1, "resolved issues are not duplicates")
	assert.Equal(t, seed[0].ID, nearby[0].ID)

	public, err := complaints.List(ctx, services.ListQuery{PublicOnly: true})
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, seed[2].ID, public[0].ID, "newest first")
	total, err := complaints.Count(ctx, services.ListQuery{ReporterID: &reporter})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	photo := "https://img.example.com/fixed.jpg"
	resolvedAt := base.Add(24 * time.Hour)
	updated, err := complaints.SetStatus(ctx, seed[0].ID, services.StatusChange{
		Status: models.Resolved, ResolutionPhotoURL: &photo, UpdatedAt: resolvedAt, ResolvedAt: &resolvedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, models.Resolved, updated.Status)
	require.NotNil(t, updated.ResolutionPhotoURL)
	assert.Equal(t, photo, *updated.ResolutionPhotoURL)

	require.NoError(t, complaints.IncrementUpvotes(ctx, seed[0].ID, -1))
	after, err := complaints.FindByID(ctx, seed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Upvotes)
	assert.True(t, errors.Is(complaints.IncrementUpvotes(ctx, primitive.NewObjectID(), 1), services.ErrNotFound))
}

func TestCategoryAndUserRepositories(t *testing.T) {
	db := newDatabase(t)
	stores := repository.NewStores(db)
	ctx := context.Background()

	created, err := stores.Categories.Upsert(ctx, &models.Category{Name: "Street Light", SLAHours: 48})
	require.NoError(t, err)
	assert.True(t, created)
	light := &models.Category{Name: "street light", SLAHours: 24}
	created, err = stores.Categories.Upsert(ctx, light)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Street Light", light.Name)
	assert.Equal(t, 24, light.SLAHours)

	byName, err := stores.Categories.FindByName(ctx, "STREET LIGHT")
	require.NoError(t, err)
	assert.Equal(t, light.ID, byName.ID)
	_, err = stores.Categories.FindByName(ctx, "Street")
	assert.True(t, errors.Is(err, services.ErrNotFound))
	_, err = stores.Categories.FindByName(ctx, "Street.Light")
	assert.True(t, errors.Is(err, services.ErrNotFound), "names are matched literally")

	user := &models.User{Name: "Asha", Email: "Asha@Example.com", Role: models.RoleCitizen, IsVerified: true, Points: 10}
	require.NoError(t, stores.Users.Create(ctx, user))
	err = stores.Users.Create(ctx, &models.User{Name: "Dup", Email: "asha@example.com"})
	assert.True(t, errors.Is(err, services.ErrConflict))

	require.NoError(t, stores.Users.AddPoints(ctx, user.ID, 50))
	user.Name = "Asha K"
	user.Points = 0
	require.NoError(t, stores.Users.Update(ctx, user))
	stored, err := stores.Users.FindByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Asha K", stored.Name)
	assert.Equal(t, 60, stored.Points, "Update leaves points alone")

	require.NoError(t, stores.Complaints.Create(ctx, &models.Issue{UserID: user.ID, Title: "x", CreatedAt: time.Now()}))
	board, err := stores.Users.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, int64(1), board[0].Reports)

	require.NoError(t, stores.Users.SetRole(ctx, "asha@example.com", models.RoleAdmin))
	citizens, err := stores.Users.CountCitizens(ctx)
	require.NoError(t, err)
	assert.Zero(t, citizens)
}

func TestAnalyticsRepository(t *testing.T) {
	db := newDatabase(t)
	stores := repository.NewStores(db)
	analytics := repository.NewAnalytics(db)
	ctx := context.Background()

	roads := &models.Category{Name: "Roads"}
	_, err := stores.Categories.Upsert(ctx, roads)
	require.NoError(t, err)

	now := time.Now().UTC()
	lat, lng := 1.0, 2.0
	for _, issue := range []*models.Issue{
		{CategoryID: &roads.ID, Status: models.Submitted, Address: "Market", Latitude: &lat, Longitude: &lng, CreatedAt: now.Add(-48 * time.Hour)},
		{CategoryID: &roads.ID, Status: models.Resolved, Address: "Market", CreatedAt: now.Add(-24 * time.Hour)},
		{Status: models.Submitted, Address: "Harbour", IsEscalated: true, CreatedAt: now.Add(-72 * time.Hour)},
		{Status: models.Submitted, Address: "", CreatedAt: now},
	} {
		require.NoError(t, stores.Complaints.Create(ctx, issue))
	}

	byStatus, err := analytics.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), byStatus[models.Submitted])

	escalated, err := analytics.CountEscalated(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), escalated)

	breakdown, err := analytics.CategoryBreakdown(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []services.CategoryCount{{Category: "Roads", Count: 2}, {Category: "Uncategorized", Count: 2}}, breakdown)

	areas, err := analytics.TopAreas(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []services.AreaCount{{Address: "Market", Count: 2}, {Address: "Harbour", Count: 1}}, areas)

	points, err := analytics.HeatPoints(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.NotNil(t, points[0].Category)
	assert.Equal(t, "Roads", *points[0].Category)

	neglected, err := analytics.NeglectedAreas(ctx, 10)
	require.NoError(t, err)
	require.Len(t, neglected, 2)
	assert.Equal(t, "Harbour", neglected[0].Address, "equal counts put the oldest first")

	dominance, err := analytics.CategoryDominance(ctx, now.Add(-7*24*time.Hour), 20)
	require.NoError(t, err)
	require.NotEmpty(t, dominance)
	assert.Equal(t, "Market", dominance[0].Address)
	assert.Equal(t, int64(2), dominance[0].Count)
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	cache := repository.NewRedisCache(client, "test:")
	var got services.PublicStats
	hit, err := cache.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := services.PublicStats{TotalComplaints: 7, Resolved: 2, ActiveCitizens: 3}
	require.NoError(t, cache.Set(ctx, "stats", want, time.Minute))
	hit, err = cache.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	n, err := client.Exists(ctx, "test:stats").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
