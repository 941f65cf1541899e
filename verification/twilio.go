package verification

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

const (
	channelEmail   = "email"
	statusApproved = "approved"
)

type verifyAPI interface {
	CreateVerification(serviceSid string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error)
}

// Twilio sends one-time codes over email through a Twilio Verify service.
type Twilio struct {
	api        verifyAPI
	serviceSID string
}

func NewTwilio(accountSID, authToken, serviceSID string) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{api: client.VerifyV2, serviceSID: serviceSID}
}

func (t *Twilio) Start(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &verify.CreateVerificationParams{}
	params.SetTo(email)
	params.SetChannel(channelEmail)
	if _, err := t.api.CreateVerification(t.serviceSID, params); err != nil {
		return fmt.Errorf("start verification for %s: %w", email, err)
	}
	return nil
}

// Check reports whether code is the one sent to email. A wrong or expired
// code is not an error.
func (t *Twilio) Check(ctx context.Context, email, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(email)
	params.SetCode(code)
	resp, err := t.api.CreateVerificationCheck(t.serviceSID, params)
	if err != nil {
		return false, fmt.Errorf("check verification for %s: %w", email, err)
	}
	return resp.Status != nil && *resp.Status == statusApproved, nil
}
