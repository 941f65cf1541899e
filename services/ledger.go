package services

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fixed point deltas.
const (
	PointsForComplaint  = 10
	PointsForUpvote     = 5
	PointsForResolution = 50
	PointsForSignup     = 10
)

// Ledger applies gamification point deltas to user balances.
type Ledger struct {
	users UserStore
}

func NewLedger(users UserStore) *Ledger {
	return &Ledger{users: users}
}

// Award adds delta to the user's balance atomically in the store.
func (l *Ledger) Award(ctx context.Context, userID primitive.ObjectID, delta int) error {
	if err := l.users.AddPoints(ctx, userID, delta); err != nil {
		return fmt.Errorf("award %d points to %s: %w", delta, userID.Hex(), err)
	}
	return nil
}

// awardQuietly is used where the primary record already exists and a failed
// award must not fail the request.
func (l *Ledger) awardQuietly(ctx context.Context, userID primitive.ObjectID, delta int) {
	if err := l.Award(ctx, userID, delta); err != nil {
		log.Println(err)
	}
}
