package core

import (
	"context"

	"github.com/kigawas/certifier-website/common"
)

// KYCProvider is the identity-check vendor reached over HTTPS. The vendor
// reports check completion asynchronously through the webhook endpoint.
type KYCProvider interface {
	CreateApplicant(ctx context.Context, firstName, lastName string) (common.Applicant, error)
	CreateCheck(ctx context.Context, applicantID, address string) (common.CheckRecord, error)
	GetChecks(ctx context.Context, applicantID string) ([]common.CheckRecord, error)
}
