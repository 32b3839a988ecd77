package core

import (
	"context"
	"unicode/utf8"

	ethereum "github.com/ethereum/go-ethereum/common"

	"github.com/kigawas/certifier-website/common"
)

// checksPerPayment is how many verification attempts one fee payment buys.
const checksPerPayment = 3

// checkEligibility rejects addresses that are already certified or have no
// recorded fee payment. It runs before any state mutation.
func (self *CertifierCore) checkEligibility(ctx context.Context, addr ethereum.Address) error {
	certified, err := self.blockchain.IsCertified(ctx, addr)
	if err != nil {
		return common.NewExternalServiceError("can not query certifier: %s", err.Error())
	}
	if certified {
		return common.NewAuthorizationError(common.CodeAlreadyCertified, "address %s is already certified", addr.Hex())
	}
	paid, err := self.blockchain.HasPaid(ctx, addr)
	if err != nil {
		return common.NewExternalServiceError("can not query fee registrar: %s", err.Error())
	}
	if !paid {
		return common.NewAuthorizationError(common.CodePaymentMissing, "address %s has no recorded fee payment", addr.Hex())
	}
	return nil
}

// validateApplicantRequest checks the request shape before touching the
// chain or the vendor.
func validateApplicantRequest(req common.ApplicantRequest) error {
	if utf8.RuneCountInString(req.FirstName) < 2 || utf8.RuneCountInString(req.LastName) < 2 {
		return common.NewValidationError(common.CodeInvalidName, "first and last name must each be at least 2 characters")
	}
	if req.Signature == "" {
		return common.NewValidationError(common.CodeMissingSignature, "signature is required")
	}
	if req.Message == "" {
		return common.NewValidationError(common.CodeMissingMessage, "message is required")
	}
	return nil
}

// authorizeSigner recovers the signer of (message, signature) and requires
// it to be one of the on-chain payment origins for addr. This is the trust
// link between the off-chain request and the on-chain fee payment: only
// whoever sent the payment may authorize a check for the beneficiary.
func (self *CertifierCore) authorizeSigner(
	ctx context.Context,
	addr ethereum.Address,
	message, signature string) (common.PaymentStatus, error) {

	signer, err := common.RecoverSigner(message, signature)
	if err != nil {
		return common.PaymentStatus{}, err
	}
	payment, err := self.blockchain.PaymentStatus(ctx, addr)
	if err != nil {
		return common.PaymentStatus{}, common.NewExternalServiceError("can not query payment status: %s", err.Error())
	}
	if !payment.HasOrigin(signer) {
		return common.PaymentStatus{}, common.NewAuthorizationError(
			common.CodeSignerPaymentMismatch,
			"signer %s did not fund the payment for %s", signer.Hex(), addr.Hex())
	}
	return payment, nil
}

// checkQuota enforces the per-payment attempt budget.
func checkQuota(existingChecks int, payment common.PaymentStatus) error {
	if existingChecks >= payment.PaymentCount*checksPerPayment {
		return common.NewAuthorizationError(
			common.CodeQuotaExceeded,
			"%d checks already used, %d payments allow at most %d",
			existingChecks, payment.PaymentCount, payment.PaymentCount*checksPerPayment)
	}
	return nil
}
