package services_test

import (
	"context"
	"errors"
	"testing"

	"civicpulse-be/models"
	"civicpulse-be/services"
	"civicpulse-be/services/mocks"
	"civicpulse-be/services/servicetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type accountsFixture struct {
	db       *servicetest.DB
	verifier *servicetest.Verifier
	tasks    *servicetest.Tasks
	notifier *mocks.MockNotifier
	svc      *services.AccountService
}

func newAccountsFixture(t *testing.T) *accountsFixture {
	f := &accountsFixture{
		db:       servicetest.New(),
		verifier: &servicetest.Verifier{Code: "123456"},
		tasks:    &servicetest.Tasks{},
		notifier: mocks.NewMockNotifier(gomock.NewController(t)),
	}
	f.svc = services.NewAccountService(f.db.Stores(), f.verifier, f.notifier, f.tasks)
	return f
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newAccountsFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, services.Registration{Name: "Asha", Email: " Asha@Example.com ", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", res.Email)
	assert.False(t, res.Resent)
	assert.Equal(t, []string{"asha@example.com"}, f.verifier.Started())

	_, err = f.svc.Login(ctx, "asha@example.com", "s3cret!")
	assert.True(t, errors.Is(err, services.ErrForbidden), "unverified accounts cannot log in")
	assert.Len(t, f.verifier.Started(), 2)

	_, err = f.svc.VerifyOTP(ctx, "asha@example.com", "000000")
	assert.True(t, errors.Is(err, services.ErrValidation))

	user, err := f.svc.VerifyOTP(ctx, "asha@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.Equal(t, services.PointsForSignup, user.Points)
	assert.Equal(t, models.RoleCitizen, user.Role)
	assert.NotEqual(t, "s3cret!", user.Password)

	f.notifier.EXPECT().Welcome(gomock.Any(), gomock.Any()).Return(nil)
	assert.Equal(t, []string{"welcome"}, f.tasks.Names())
	f.tasks.RunAll(ctx)

	_, err = f.svc.VerifyOTP(ctx, "asha@example.com", "123456")
	assert.True(t, errors.Is(err, services.ErrValidation), "already verified")

	_, err = f.svc.Login(ctx, "asha@example.com", "wrong")
	assert.True(t, errors.Is(err, services.ErrUnauthorized))
	_, err = f.svc.Login(ctx, "nobody@example.com", "s3cret!")
	assert.True(t, errors.Is(err, services.ErrUnauthorized))

	logged, err := f.svc.Login(ctx, "ASHA@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
}

func TestRegisterRejectsVerifiedDuplicateAndRefreshesPending(t *testing.T) {
	f := newAccountsFixture(t)
	ctx := context.Background()
	f.db.AddUser(models.User{Name: "Taken", Email: "taken@example.com", IsVerified: true, Role: models.RoleCitizen})

	_, err := f.svc.Register(ctx, services.Registration{Name: "X", Email: "taken@example.com", Password: "pw"})
	assert.True(t, errors.Is(err, services.ErrValidation))

	_, err = f.svc.Register(ctx, services.Registration{Name: "Old", Email: "pending@example.com", Password: "first"})
	require.NoError(t, err)
	res, err := f.svc.Register(ctx, services.Registration{Name: "New", Email: "pending@example.com", Password: "second"})
	require.NoError(t, err)
	assert.True(t, res.Resent)

	_, err = f.svc.VerifyOTP(ctx, "pending@example.com", "123456")
	require.NoError(t, err)
	f.notifier.EXPECT().Welcome(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	user, err := f.svc.Login(ctx, "pending@example.com", "second")
	require.NoError(t, err)
	assert.Equal(t, "New", user.Name)

	_, err = f.svc.Register(ctx, services.Registration{Email: "x@example.com"})
	assert.True(t, errors.Is(err, services.ErrValidation))
}

func TestRegisterSurvivesVerifierOutage(t *testing.T) {
	f := newAccountsFixture(t)
	f.verifier.StartErr = errors.New("provider down")

	_, err := f.svc.Register(context.Background(), services.Registration{Name: "A", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	err = f.svc.ResendOTP(context.Background(), "a@example.com")
	assert.Error(t, err)

	err = f.svc.ResendOTP(context.Background(), "missing@example.com")
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestProfileAndLeaderboard(t *testing.T) {
	f := newAccountsFixture(t)
	ctx := context.Background()

	hero := f.db.AddUser(models.User{Name: "Hero", Email: "hero@example.com", Role: models.RoleCitizen, IsVerified: true, Points: 5200})
	f.db.AddUser(models.User{Name: "Mid", Email: "mid@example.com", Role: models.RoleCitizen, IsVerified: true, Points: 1200})
	f.db.AddUser(models.User{Name: "Unverified", Email: "u@example.com", Role: models.RoleCitizen, Points: 9000})
	f.db.AddUser(models.User{Name: "Boss", Email: "boss@example.com", Role: models.RoleAdmin, IsVerified: true, Points: 9999})
	f.db.AddIssue(models.Issue{UserID: hero.ID, Title: "a"})
	f.db.AddIssue(models.Issue{UserID: hero.ID, Title: "b"})

	profile, err := f.svc.Profile(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile.TotalReports)
	assert.Equal(t, models.BadgeCivicHero, profile.Badge)

	board, err := f.svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "Hero", board[0].Name)
	assert.Equal(t, int64(2), board[0].Reports)
	assert.Equal(t, models.BadgeCivicHero, board[0].Badge)
	assert.Equal(t, models.BadgeVerifiedReporter, board[1].Badge)

	_, err = f.svc.Profile(ctx, models.User{}.ID)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}
