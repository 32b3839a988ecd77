package core

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	ethereum "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"

	"github.com/kigawas/certifier-website/common"
	"github.com/kigawas/certifier-website/identity"
	"github.com/kigawas/certifier-website/storage"
)

const (
	testAddress = "0x00a329c0648769A73afAc7F9381E08FB43dBEA72"
	testPrivKey = "2222222222222222222222222222222222222222222222222222222222222222"
	testMessage = "certify 0x00a329c0648769a73afac7f9381e08fb43dbea72"
)

type testBlockchain struct {
	certified bool
	paid      bool
	payment   common.PaymentStatus
	err       error
}

func (self *testBlockchain) IsCertified(ctx context.Context, addr ethereum.Address) (bool, error) {
	return self.certified, self.err
}

func (self *testBlockchain) HasPaid(ctx context.Context, addr ethereum.Address) (bool, error) {
	return self.paid, self.err
}

func (self *testBlockchain) PaymentStatus(ctx context.Context, addr ethereum.Address) (common.PaymentStatus, error) {
	return self.payment, self.err
}

type testProvider struct {
	applicants   int
	checks       int
	vendorChecks []common.CheckRecord
	failCreate   bool
}

func (self *testProvider) CreateApplicant(ctx context.Context, firstName, lastName string) (common.Applicant, error) {
	if self.failCreate {
		return common.Applicant{}, errors.New("vendor is down")
	}
	self.applicants++
	return common.Applicant{ID: "applicant-1", SDKToken: "sdk-token-1"}, nil
}

func (self *testProvider) CreateCheck(ctx context.Context, applicantID, address string) (common.CheckRecord, error) {
	if self.failCreate {
		return common.CheckRecord{}, errors.New("vendor is down")
	}
	self.checks++
	return common.CheckRecord{ID: "check-1", ApplicantID: applicantID, Status: "in_progress"}, nil
}

func (self *testProvider) GetChecks(ctx context.Context, applicantID string) ([]common.CheckRecord, error) {
	return self.vendorChecks, nil
}

func signerFromKey(t *testing.T, privHex string) ethereum.Address {
	key, err := crypto.HexToECDSA(privHex)
	if err != nil {
		t.Fatalf("Couldn't parse test private key: %v", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey)
}

func signMessage(t *testing.T, message, privHex string) string {
	key, err := crypto.HexToECDSA(privHex)
	if err != nil {
		t.Fatalf("Couldn't parse test private key: %v", err)
	}
	sig, err := crypto.Sign(common.PersonalMessageHash(message), key)
	if err != nil {
		t.Fatalf("Couldn't sign test message: %v", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig)
}

func newTestCore(t *testing.T, bc *testBlockchain, provider *testProvider) (*CertifierCore, *storage.RedisStorage, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.NewRedisStorage(client)
	return NewCertifierCore(bc, provider, store, storage.NewVerificationQueue(client)), store, client
}

func validRequest(t *testing.T) common.ApplicantRequest {
	return common.ApplicantRequest{
		Address:   testAddress,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Signature: signMessage(t, testMessage, testPrivKey),
		Message:   testMessage,
	}
}

func paidBlockchain(t *testing.T) *testBlockchain {
	return &testBlockchain{
		paid: true,
		payment: common.PaymentStatus{
			PaymentCount:   1,
			PaymentOrigins: []ethereum.Address{signerFromKey(t, testPrivKey)},
		},
	}
}

func TestCertificationLifecycle(t *testing.T) {
	bc := paidBlockchain(t)
	provider := &testProvider{}
	app, store, _ := newTestCore(t, bc, provider)
	ctx := context.Background()

	sdkToken, err := app.CreateApplicant(ctx, validRequest(t))
	if err != nil {
		t.Fatalf("Couldn't create applicant: %v", err)
	}
	if sdkToken != "sdk-token-1" {
		t.Fatalf("Expected sdk token, got %q", sdkToken)
	}

	record, _ := identity.New(store, testAddress)
	status, err := record.Status(ctx)
	if err != nil {
		t.Fatalf("Couldn't read status: %v", err)
	}
	if status != common.StatusCreated {
		t.Fatalf("Expected created after applicant, got %s", status)
	}

	if err := app.CreateCheck(ctx, testAddress); err != nil {
		t.Fatalf("Couldn't create check: %v", err)
	}
	status, _ = record.Status(ctx)
	if status != common.StatusPending {
		t.Fatalf("Expected pending after check, got %s", status)
	}
	count, _ := record.CheckCount(ctx)
	if count != 1 {
		t.Fatalf("Expected one stored check, got %d", count)
	}

	outcome := common.CheckOutcome{Result: "clear", Reason: "identity report clear"}
	if err := app.CompleteCheck(ctx, testAddress, outcome); err != nil {
		t.Fatalf("Couldn't complete check: %v", err)
	}
	data, err := record.GetData(ctx)
	if err != nil {
		t.Fatalf("Couldn't read data: %v", err)
	}
	if data.Status != common.StatusCompleted || data.Result != "clear" {
		t.Fatalf("Expected completed/clear, got %+v", data)
	}

	// completed identities can not restart the flow
	if _, err := app.CreateApplicant(ctx, validRequest(t)); err == nil {
		t.Fatalf("Expected applicant creation after completion to fail")
	} else if common.CodeOf(err) != common.CodeInvalidStateTransition {
		t.Fatalf("Expected INVALID_STATE_TRANSITION, got %v", err)
	}
	if err := app.CreateCheck(ctx, testAddress); err == nil {
		t.Fatalf("Expected check creation after completion to fail")
	} else if common.CodeOf(err) != common.CodeInvalidStateTransition {
		t.Fatalf("Expected INVALID_STATE_TRANSITION, got %v", err)
	}

	// webhook replay overwrites the same fields and stays completed
	if err := app.CompleteCheck(ctx, testAddress, outcome); err != nil {
		t.Fatalf("Expected replayed completion to be accepted, got: %v", err)
	}
}

func TestCreateApplicantRejections(t *testing.T) {
	ctx := context.Background()

	app, _, _ := newTestCore(t, &testBlockchain{certified: true}, &testProvider{})
	if _, err := app.CreateApplicant(ctx, validRequest(t)); common.CodeOf(err) != common.CodeAlreadyCertified {
		t.Fatalf("Expected ALREADY_CERTIFIED, got %v", err)
	}

	app, _, _ = newTestCore(t, &testBlockchain{paid: false}, &testProvider{})
	if _, err := app.CreateApplicant(ctx, validRequest(t)); common.CodeOf(err) != common.CodePaymentMissing {
		t.Fatalf("Expected PAYMENT_MISSING, got %v", err)
	}

	app, _, _ = newTestCore(t, paidBlockchain(t), &testProvider{})
	req := validRequest(t)
	req.FirstName = "A"
	if _, err := app.CreateApplicant(ctx, req); common.CodeOf(err) != common.CodeInvalidName {
		t.Fatalf("Expected INVALID_NAME, got %v", err)
	}

	req = validRequest(t)
	req.Signature = ""
	if _, err := app.CreateApplicant(ctx, req); common.CodeOf(err) != common.CodeMissingSignature {
		t.Fatalf("Expected MISSING_SIGNATURE, got %v", err)
	}

	req = validRequest(t)
	req.Message = ""
	if _, err := app.CreateApplicant(ctx, req); common.CodeOf(err) != common.CodeMissingMessage {
		t.Fatalf("Expected MISSING_MESSAGE, got %v", err)
	}

	req = validRequest(t)
	req.Signature = "0x1234"
	if _, err := app.CreateApplicant(ctx, req); common.CodeOf(err) != common.CodeBadSignature {
		t.Fatalf("Expected BAD_SIGNATURE, got %v", err)
	}

	req = validRequest(t)
	req.Address = "not an address"
	if _, err := app.CreateApplicant(ctx, req); common.CodeOf(err) != common.CodeInvalidAddress {
		t.Fatalf("Expected INVALID_ADDRESS, got %v", err)
	}
}

func TestCreateApplicantSignerMismatch(t *testing.T) {
	// signature is valid but from a key that never funded the payment
	otherKey := "3333333333333333333333333333333333333333333333333333333333333333"
	app, store, _ := newTestCore(t, paidBlockchain(t), &testProvider{})
	req := validRequest(t)
	req.Signature = signMessage(t, testMessage, otherKey)

	_, err := app.CreateApplicant(context.Background(), req)
	if common.CodeOf(err) != common.CodeSignerPaymentMismatch {
		t.Fatalf("Expected SIGNER_PAYMENT_MISMATCH, got %v", err)
	}

	// no state mutation before the rejection
	record, _ := identity.New(store, testAddress)
	exists, _ := record.Exists(context.Background())
	if exists {
		t.Fatalf("Expected no record after rejected request")
	}
}

func TestCreateCheckQuota(t *testing.T) {
	bc := paidBlockchain(t)
	provider := &testProvider{}
	app, store, _ := newTestCore(t, bc, provider)
	ctx := context.Background()

	record, _ := identity.New(store, testAddress)
	if err := record.SetData(ctx, common.IdentityData{Status: common.StatusCreated}); err != nil {
		t.Fatalf("Couldn't seed record: %v", err)
	}
	if err := record.SetApplicantID(ctx, "applicant-1"); err != nil {
		t.Fatalf("Couldn't seed applicant id: %v", err)
	}
	// one payment buys three attempts, all used up
	for _, id := range []string{"old-1", "old-2", "old-3"} {
		if err := record.AddCheck(ctx, common.CheckRecord{ID: id, ApplicantID: "applicant-1"}); err != nil {
			t.Fatalf("Couldn't seed check %s: %v", id, err)
		}
	}

	err := app.CreateCheck(ctx, testAddress)
	if common.CodeOf(err) != common.CodeQuotaExceeded {
		t.Fatalf("Expected QUOTA_EXCEEDED, got %v", err)
	}
	if provider.checks != 0 {
		t.Fatalf("Expected no vendor check call, got %d", provider.checks)
	}
	status, _ := record.Status(ctx)
	if status != common.StatusCreated {
		t.Fatalf("Expected stored state unchanged, got %s", status)
	}

	// a second payment raises the budget to six
	bc.payment.PaymentCount = 2
	if err := app.CreateCheck(ctx, testAddress); err != nil {
		t.Fatalf("Expected 4th check to pass with 2 payments, got: %v", err)
	}
}

func TestCreateCheckStateGates(t *testing.T) {
	app, store, _ := newTestCore(t, paidBlockchain(t), &testProvider{})
	ctx := context.Background()

	// no applicant yet
	if err := app.CreateCheck(ctx, testAddress); common.CodeOf(err) != common.CodeInvalidStateTransition {
		t.Fatalf("Expected INVALID_STATE_TRANSITION for unknown identity, got %v", err)
	}

	// created but the vendor already has a check for this applicant
	record, _ := identity.New(store, testAddress)
	if err := record.SetData(ctx, common.IdentityData{Status: common.StatusCreated}); err != nil {
		t.Fatalf("Couldn't seed record: %v", err)
	}
	if err := record.SetApplicantID(ctx, "applicant-1"); err != nil {
		t.Fatalf("Couldn't seed applicant id: %v", err)
	}
	appWithVendorChecks := NewCertifierCore(paidBlockchain(t), &testProvider{
		vendorChecks: []common.CheckRecord{{ID: "check-0", ApplicantID: "applicant-1"}},
	}, store, nil)
	if err := appWithVendorChecks.CreateCheck(ctx, testAddress); common.CodeOf(err) != common.CodeInvalidStateTransition {
		t.Fatalf("Expected INVALID_STATE_TRANSITION for existing vendor check, got %v", err)
	}
}

func TestHandleWebhook(t *testing.T) {
	app, _, client := newTestCore(t, paidBlockchain(t), &testProvider{})
	ctx := context.Background()

	if err := app.HandleWebhook(ctx, "report.completed", "https://vendor/checks/1"); err != nil {
		t.Fatalf("Expected unrelated events to be dropped, got: %v", err)
	}
	if err := app.HandleWebhook(ctx, CheckCompletedEvent, "https://vendor/checks/1"); err != nil {
		t.Fatalf("Couldn't handle webhook: %v", err)
	}

	hrefs, err := storage.NewVerificationQueue(client).All(ctx)
	if err != nil {
		t.Fatalf("Couldn't scan verification queue: %v", err)
	}
	if len(hrefs) != 1 || hrefs[0] != "https://vendor/checks/1" {
		t.Fatalf("Expected queued href, got %+v", hrefs)
	}
}

func TestGetStatus(t *testing.T) {
	app, store, _ := newTestCore(t, paidBlockchain(t), &testProvider{})
	ctx := context.Background()

	resp, err := app.GetStatus(ctx, testAddress)
	if err != nil {
		t.Fatalf("Couldn't get status: %v", err)
	}
	if resp.Certified || resp.Status != common.StatusUnknown {
		t.Fatalf("Expected unknown uncertified status, got %+v", resp)
	}

	record, _ := identity.New(store, testAddress)
	if err := record.SetData(ctx, common.IdentityData{Status: common.StatusPending}); err != nil {
		t.Fatalf("Couldn't seed record: %v", err)
	}
	resp, err = app.GetStatus(ctx, testAddress)
	if err != nil {
		t.Fatalf("Couldn't get status: %v", err)
	}
	if resp.Status != common.StatusPending {
		t.Fatalf("Expected pending, got %+v", resp)
	}
}
