package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
	RoleWorker  Role = "worker"
)

// Privileged reports whether the role may triage issues.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleWorker
}

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password_hash,omitempty" json:"-"`
	Role       Role               `bson:"role" json:"role"`
	Points     int                `bson:"points" json:"points"`
	IsVerified bool               `bson:"is_verified" json:"is_verified"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// Badge tiers, highest first.
const (
	BadgeCivicHero            = "Civic Hero"
	BadgeNeighborhoodGuardian = "Neighborhood Guardian"
	BadgeVerifiedReporter     = "Verified Reporter"
	BadgeActiveCitizen        = "Active Citizen"
)

// Badge derives the gamification tier for a point balance. It is never stored.
func Badge(points int) string {
	switch {
	case points >= 5000:
		return BadgeCivicHero
	case points >= 2500:
		return BadgeNeighborhoodGuardian
	case points >= 1000:
		return BadgeVerifiedReporter
	default:
		return BadgeActiveCitizen
	}
}
