package common

import (
	"time"

	ethereum "github.com/ethereum/go-ethereum/common"
)

// GetTimepoint returns the current time in millisecond resolution, the unit
// every persisted timestamp in this system uses.
func GetTimepoint() uint64 {
	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	return uint64(timestamp)
}

func TimepointToTime(t uint64) time.Time {
	return time.Unix(0, int64(t)*int64(time.Millisecond))
}

// KYCStatus is the certification stage of one identity. An identity only
// moves forward: unknown -> created -> pending -> completed.
type KYCStatus string

const (
	StatusUnknown   KYCStatus = "unknown"
	StatusCreated   KYCStatus = "created"
	StatusPending   KYCStatus = "pending"
	StatusCompleted KYCStatus = "completed"
)

var statusRank = map[KYCStatus]int{
	StatusUnknown:   0,
	StatusCreated:   1,
	StatusPending:   2,
	StatusCompleted: 3,
}

// CanAdvanceTo reports whether moving from self to next keeps the status
// moving forward. Re-storing the same status is allowed.
func (self KYCStatus) CanAdvanceTo(next KYCStatus) bool {
	cur, ok := statusRank[self]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt >= cur
}

// IdentityData is the scalar outcome fields of one identity record.
type IdentityData struct {
	Error  string    `json:"error"`
	Reason string    `json:"reason"`
	Result string    `json:"result"`
	Status KYCStatus `json:"status"`
}

// Applicant is the vendor-side entity created for one identity before any
// check can be submitted.
type Applicant struct {
	ID       string `json:"id"`
	SDKToken string `json:"sdk_token"`
}

// CheckRecord is one immutable check submission stored under an identity.
type CheckRecord struct {
	ID          string `json:"id"`
	ApplicantID string `json:"applicant_id"`
	Status      string `json:"status"`
	Result      string `json:"result"`
	CreatedAt   uint64 `json:"created_at"`
}

func (self CheckRecord) RecordID() string {
	return self.ID
}

// CheckOutcome carries the final fields reported by the vendor when a check
// completes.
type CheckOutcome struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// RefundEntry is one refund owed to Origin for a fee payment it made on
// behalf of Who. Addresses are stored in lowercased hex form.
type RefundEntry struct {
	Who    string `json:"who"`
	Origin string `json:"origin"`
}

// PaymentStatus is the on-chain fee payment state of one identity.
// PaymentOrigins are the addresses that funded the payments.
type PaymentStatus struct {
	PaymentCount   int
	PaymentOrigins []ethereum.Address
}

func (self PaymentStatus) HasOrigin(addr ethereum.Address) bool {
	for _, origin := range self.PaymentOrigins {
		if origin == addr {
			return true
		}
	}
	return false
}

// ApplicantRequest is the payload of an applicant creation call.
type ApplicantRequest struct {
	Address   string
	FirstName string
	LastName  string
	Signature string
	Message   string
}

// StatusResponse is the public certification state of one address.
type StatusResponse struct {
	Certified bool      `json:"certified"`
	Status    KYCStatus `json:"status"`
	Result    string    `json:"result"`
	Reason    string    `json:"reason"`
	Error     string    `json:"error"`
}

// RefundActivity is one recorded refund submission with its tx hash.
type RefundActivity struct {
	Who       string `json:"who"`
	Origin    string `json:"origin"`
	TxHash    string `json:"tx"`
	Timepoint uint64 `json:"timepoint"`
}

func ErrorToString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
