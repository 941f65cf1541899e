package services

import (
	"context"
	"errors"
	"strings"

	"civicpulse-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CategoryResolver maps a declared category id or free-text name to a
// canonical category and its SLA.
type CategoryResolver struct {
	store CategoryStore
}

func NewCategoryResolver(store CategoryStore) *CategoryResolver {
	return &CategoryResolver{store: store}
}

// Resolution is the outcome of a lookup. Category is nil when nothing matched
// and SLAHours then holds the default.
type Resolution struct {
	Category *models.Category
	SLAHours int
}

// Resolve tries the reference first and the name second. Unknown or
// malformed input is not an error: the issue is simply left uncategorised.
func (r *CategoryResolver) Resolve(ctx context.Context, ref, name string) (Resolution, error) {
	if ref = strings.TrimSpace(ref); ref != "" {
		if id, err := primitive.ObjectIDFromHex(ref); err == nil {
			cat, err := r.store.FindByID(ctx, id)
			switch {
			case err == nil:
				return resolved(cat), nil
			case !errors.Is(err, ErrNotFound):
				return Resolution{}, err
			}
		}
	}

	if name = strings.TrimSpace(name); name != "" {
		cat, err := r.store.FindByName(ctx, name)
		switch {
		case err == nil:
			return resolved(cat), nil
		case !errors.Is(err, ErrNotFound):
			return Resolution{}, err
		}
	}

	return Resolution{SLAHours: models.DefaultSLAHours}, nil
}

// ByName looks a category up by name only, returning nil when none matches.
func (r *CategoryResolver) ByName(ctx context.Context, name string) (*models.Category, error) {
	cat, err := r.store.FindByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return cat, err
}

func resolved(cat *models.Category) Resolution {
	hours := cat.SLAHours
	if hours <= 0 {
		hours = models.DefaultSLAHours
	}
	return Resolution{Category: cat, SLAHours: hours}
}
