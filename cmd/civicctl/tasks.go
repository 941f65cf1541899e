package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"
)

const minPasswordLength = 6

func seedCategories(ctx context.Context, categories services.CategoryStore, out io.Writer) error {
	for _, def := range models.DefaultCategories {
		cat := def
		created, err := categories.Upsert(ctx, &cat)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", def.Name, err)
		}
		verb := "updated"
		if created {
			verb = "created"
		}
		fmt.Fprintf(out, "%-8s %s (%s, %dh SLA)\n", verb, cat.Name, cat.Department, cat.SLAHours)
	}
	return nil
}

func setRole(ctx context.Context, users services.UserStore, email, role string) error {
	r := models.Role(strings.ToLower(strings.TrimSpace(role)))
	switch r {
	case models.RoleAdmin, models.RoleWorker, models.RoleCitizen:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	if err := users.SetRole(ctx, strings.ToLower(strings.TrimSpace(email)), r); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("no account for %s", email)
		}
		return err
	}
	return nil
}

func setPassword(ctx context.Context, users services.UserStore, email, password string, now time.Time) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	user, err := users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("no account for %s", email)
		}
		return err
	}
	user.Password = password
	if err := user.HashPassword(); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.UpdatedAt = now
	return users.Update(ctx, user)
}
