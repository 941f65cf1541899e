// Package verification proves that a registering user controls their email
// address.
package verification

import (
	"context"
	"log"
)

// Disabled approves every code. It is used when no verification provider is
// configured, typically in development.
type Disabled struct{}

func (Disabled) Start(_ context.Context, email string) error {
	log.Printf("verification disabled, %s will be approved with any code", email)
	return nil
}

func (Disabled) Check(context.Context, string, string) (bool, error) {
	return true, nil
}
