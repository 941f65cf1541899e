package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const LeaderboardSize = 20

// AccountService handles registration, verification and sign-in. Token
// issuance stays with the HTTP layer.
type AccountService struct {
	users      UserStore
	complaints ComplaintStore
	verifier   Verifier
	notifier   Notifier
	tasks      TaskRunner
	now        func() time.Time
}

func NewAccountService(stores Stores, verifier Verifier, notifier Notifier, tasks TaskRunner) *AccountService {
	return &AccountService{
		users:      stores.Users,
		complaints: stores.Complaints,
		verifier:   verifier,
		notifier:   notifier,
		tasks:      tasks,
		now:        time.Now,
	}
}

type Registration struct {
	Name     string
	Email    string
	Password string
}

// RegisterResult tells the caller whether an existing unverified account was
// refreshed instead of a new one being created.
type RegisterResult struct {
	Email   string `json:"email"`
	Resent  bool   `json:"-"`
	Pending bool   `json:"requiresOTP"`
}

// Register creates an unverified citizen and starts verification. Signing
// up again with the email of an unverified account refreshes it.
func (a *AccountService) Register(ctx context.Context, in Registration) (*RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, newError(ErrValidation, "Please provide name, email, and password")
	}

	existing, err := a.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	now := a.now()
	if existing != nil {
		if existing.IsVerified {
			return nil, newError(ErrValidation, "Email already in use")
		}
		existing.Name = name
		existing.Password = in.Password
		if err := existing.HashPassword(); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		existing.UpdatedAt = now
		if err := a.users.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		a.startVerification(ctx, email)
		return &RegisterResult{Email: email, Resent: true, Pending: true}, nil
	}

	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		Password:  in.Password,
		Role:      models.RoleCitizen,
		Points:    PointsForSignup,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, newError(ErrValidation, "Email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	a.startVerification(ctx, email)
	return &RegisterResult{Email: email, Pending: true}, nil
}

// VerifyOTP checks the code and marks the account verified.
func (a *AccountService) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, newError(ErrValidation, "Please provide email and OTP")
	}

	user, err := a.pendingUser(ctx, email)
	if err != nil {
		return nil, err
	}

	ok, err := a.verifier.Check(ctx, email, code)
	if err != nil {
		return nil, fmt.Errorf("check verification code: %w", err)
	}
	if !ok {
		return nil, newError(ErrValidation, "Invalid OTP. Please try again.")
	}

	user.IsVerified = true
	user.UpdatedAt = a.now()
	if err := a.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if a.notifier != nil && a.tasks != nil {
		welcomed := *user
		a.tasks.Submit("welcome", func(ctx context.Context) error {
			return a.notifier.Welcome(ctx, &welcomed)
		})
	}
	return user, nil
}

// ResendOTP restarts verification for an unverified account.
func (a *AccountService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return newError(ErrValidation, "Please provide email")
	}
	if _, err := a.pendingUser(ctx, email); err != nil {
		return err
	}
	if err := a.verifier.Start(ctx, email); err != nil {
		return fmt.Errorf("start verification: %w", err)
	}
	return nil
}

// Login checks credentials. Unverified accounts are refused with a fresh
// code sent out.
func (a *AccountService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, newError(ErrValidation, "Please provide email and password")
	}

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.ComparePassword(password) {
		return nil, newError(ErrUnauthorized, "Incorrect email or password")
	}
	if !user.IsVerified {
		a.startVerification(ctx, email)
		return nil, newError(ErrForbidden, "Account not verified. A new OTP has been sent to your email.")
	}
	return user, nil
}

type Profile struct {
	ID           primitive.ObjectID `json:"id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Role         models.Role        `json:"role"`
	Points       int                `json:"points"`
	CreatedAt    time.Time          `json:"created_at"`
	TotalReports int64              `json:"total_reports"`
	Badge        string             `json:"badge"`
	IsVerified   bool               `json:"isVerified"`
}

func (a *AccountService) Profile(ctx context.Context, userID primitive.ObjectID) (*Profile, error) {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	reports, err := a.complaints.Count(ctx, ListQuery{ReporterID: &userID})
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	return &Profile{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		Points:       user.Points,
		CreatedAt:    user.CreatedAt,
		TotalReports: reports,
		Badge:        models.Badge(user.Points),
		IsVerified:   user.IsVerified,
	}, nil
}

// Leaderboard ranks verified citizens by points.
func (a *AccountService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	entries, err := a.users.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Badge = models.Badge(entries[i].Points)
	}
	return orEmpty(entries), nil
}

func (a *AccountService) pendingUser(ctx context.Context, email string) (*models.User, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.IsVerified {
		return nil, newError(ErrValidation, "Account is already verified")
	}
	return user, nil
}

// startVerification is best-effort; the user can always ask for a resend.
func (a *AccountService) startVerification(ctx context.Context, email string) {
	if err := a.verifier.Start(ctx, email); err != nil {
		log.Printf("failed to start verification for %s: %v", email, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
