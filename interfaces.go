package certifier

import (
	"context"

	"github.com/kigawas/certifier-website/common"
)

// Certifier is the application surface the HTTP layer talks to. All of the
// functions must support concurrency.
type Certifier interface {
	// GetStatus reports the public certification state of address.
	GetStatus(ctx context.Context, address string) (common.StatusResponse, error)

	// CreateApplicant registers a vendor applicant for the address and
	// returns the vendor SDK token. The request must prove control of a
	// payment origin through a personal-sign signature.
	CreateApplicant(ctx context.Context, req common.ApplicantRequest) (string, error)

	// CreateCheck submits a verification check for an address whose
	// applicant already exists.
	CreateCheck(ctx context.Context, address string) error

	// HandleWebhook processes a vendor webhook notification.
	HandleWebhook(ctx context.Context, eventType, resourceHref string) error

	// CompleteCheck applies a final vendor outcome to a pending identity.
	CompleteCheck(ctx context.Context, address string, outcome common.CheckOutcome) error
}

// RefundAuditor exposes the recorded refund submissions for operators.
type RefundAuditor interface {
	GetActivities() ([]common.RefundActivity, error)
}
