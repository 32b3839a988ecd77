package core

import (
	"context"
	"log"

	"github.com/kigawas/certifier-website/common"
	"github.com/kigawas/certifier-website/identity"
	"github.com/kigawas/certifier-website/storage"
)

// CheckCompletedEvent is the vendor webhook event type that signals a check
// reached its final state.
const CheckCompletedEvent = "check.completed"

// CertifierCore drives identities through the certification state machine:
// unknown -> created -> pending -> completed. Every operation re-reads the
// record from storage, nothing is cached across requests.
type CertifierCore struct {
	blockchain    Blockchain
	provider      KYCProvider
	store         *storage.RedisStorage
	verifications *storage.VerificationQueue
}

func NewCertifierCore(
	blockchain Blockchain,
	provider KYCProvider,
	store *storage.RedisStorage,
	verifications *storage.VerificationQueue) *CertifierCore {
	return &CertifierCore{
		blockchain,
		provider,
		store,
		verifications,
	}
}

// GetStatus reports the public certification state of address.
func (self *CertifierCore) GetStatus(ctx context.Context, address string) (common.StatusResponse, error) {
	record, err := identity.New(self.store, address)
	if err != nil {
		return common.StatusResponse{}, err
	}
	certified, err := self.blockchain.IsCertified(ctx, record.Address())
	if err != nil {
		return common.StatusResponse{}, common.NewExternalServiceError("can not query certifier: %s", err.Error())
	}
	data, err := record.GetData(ctx)
	if err != nil {
		return common.StatusResponse{}, err
	}
	return common.StatusResponse{
		Certified: certified,
		Status:    data.Status,
		Result:    data.Result,
		Reason:    data.Reason,
		Error:     data.Error,
	}, nil
}

// CreateApplicant registers a vendor applicant for the requested address and
// moves the record to created. The request must carry a personal-sign proof
// from one of the addresses that funded the on-chain fee payment.
func (self *CertifierCore) CreateApplicant(ctx context.Context, req common.ApplicantRequest) (string, error) {
	record, err := identity.New(self.store, req.Address)
	if err != nil {
		return "", err
	}
	if err := self.checkEligibility(ctx, record.Address()); err != nil {
		return "", err
	}
	if err := validateApplicantRequest(req); err != nil {
		return "", err
	}
	if _, err := self.authorizeSigner(ctx, record.Address(), req.Message, req.Signature); err != nil {
		return "", err
	}

	status, err := record.Status(ctx)
	if err != nil {
		return "", err
	}
	if status != common.StatusUnknown && status != common.StatusCreated {
		return "", common.NewStateConflictError("can not create applicant for %s in status %s", req.Address, status)
	}

	applicant, err := self.provider.CreateApplicant(ctx, req.FirstName, req.LastName)
	if err != nil {
		return "", common.NewExternalServiceError("vendor applicant creation failed: %s", err.Error())
	}
	log.Printf("Core: created applicant %s for %s", applicant.ID, record.Key())

	if err := record.SetData(ctx, common.IdentityData{Status: common.StatusCreated}); err != nil {
		return "", err
	}
	if err := record.SetApplicantID(ctx, applicant.ID); err != nil {
		return "", err
	}
	return applicant.SDKToken, nil
}

// CreateCheck submits a vendor check for an address whose applicant already
// exists and moves the record to pending. One fee payment buys at most
// three attempts.
func (self *CertifierCore) CreateCheck(ctx context.Context, address string) error {
	record, err := identity.New(self.store, address)
	if err != nil {
		return err
	}
	if err := self.checkEligibility(ctx, record.Address()); err != nil {
		return err
	}

	status, err := record.Status(ctx)
	if err != nil {
		return err
	}
	if status != common.StatusCreated {
		return common.NewStateConflictError("can not create check for %s in status %s", address, status)
	}
	applicantID, err := record.ApplicantID(ctx)
	if err != nil {
		return err
	}
	if applicantID == "" {
		return common.NewStateConflictError("no applicant registered for %s", address)
	}
	vendorChecks, err := self.provider.GetChecks(ctx, applicantID)
	if err != nil {
		return common.NewExternalServiceError("can not list vendor checks: %s", err.Error())
	}
	if len(vendorChecks) > 0 {
		return common.NewStateConflictError("applicant %s already has a check submitted", applicantID)
	}

	existing, err := record.CheckCount(ctx)
	if err != nil {
		return err
	}
	payment, err := self.blockchain.PaymentStatus(ctx, record.Address())
	if err != nil {
		return common.NewExternalServiceError("can not query payment status: %s", err.Error())
	}
	if err := checkQuota(existing, payment); err != nil {
		return err
	}

	check, err := self.provider.CreateCheck(ctx, applicantID, common.NormalizeAddress(record.Address()))
	if err != nil {
		return common.NewExternalServiceError("vendor check creation failed: %s", err.Error())
	}
	if check.CreatedAt == 0 {
		check.CreatedAt = common.GetTimepoint()
	}
	log.Printf("Core: created check %s for %s (attempt %d of %d)",
		check.ID, record.Key(), existing+1, payment.PaymentCount*checksPerPayment)

	if err := record.AddCheck(ctx, check); err != nil {
		return err
	}
	if err := record.SetCheckID(ctx, check.ID); err != nil {
		return err
	}
	return record.SetData(ctx, common.IdentityData{Status: common.StatusPending})
}

// HandleWebhook enqueues completed-check resources for result
// reconciliation. Other event types are acknowledged and dropped. Replayed
// events are accepted silently, re-processing just overwrites the same
// fields.
func (self *CertifierCore) HandleWebhook(ctx context.Context, eventType, resourceHref string) error {
	if eventType != CheckCompletedEvent {
		log.Printf("Core: ignoring webhook event %s", eventType)
		return nil
	}
	if resourceHref == "" {
		return common.NewValidationError("", "webhook resource href is required")
	}
	log.Printf("Core: check completed, queueing %s", resourceHref)
	return self.verifications.Push(ctx, resourceHref)
}

// CompleteCheck applies a final vendor outcome to a pending identity,
// moving it to completed. Delivering the same outcome again overwrites the
// same fields and stays completed.
func (self *CertifierCore) CompleteCheck(ctx context.Context, address string, outcome common.CheckOutcome) error {
	record, err := identity.New(self.store, address)
	if err != nil {
		return err
	}
	status, err := record.Status(ctx)
	if err != nil {
		return err
	}
	if status != common.StatusPending && status != common.StatusCompleted {
		return common.NewStateConflictError("can not complete check for %s in status %s", address, status)
	}

	if err := record.SetData(ctx, common.IdentityData{
		Error:  outcome.Error,
		Reason: outcome.Reason,
		Result: outcome.Result,
		Status: common.StatusCompleted,
	}); err != nil {
		return err
	}

	// reflect the outcome on the stored check record as well
	checkID, err := record.CheckID(ctx)
	if err != nil || checkID == "" {
		return err
	}
	checks, err := record.Checks(ctx)
	if err != nil {
		return err
	}
	for _, check := range checks {
		if check.ID != checkID {
			continue
		}
		check.Status = "complete"
		check.Result = outcome.Result
		if err := record.AddCheck(ctx, check); err != nil {
			return err
		}
		break
	}
	log.Printf("Core: %s completed with result %q", record.Key(), outcome.Result)
	return nil
}
