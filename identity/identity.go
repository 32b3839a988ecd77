package identity

import (
	"context"
	"encoding/json"
	"sync"

	ethereum "github.com/ethereum/go-ethereum/common"

	"github.com/kigawas/certifier-website/common"
	"github.com/kigawas/certifier-website/storage"
)

const keyPrefix = "identity_"

// Identity is the persisted certification record of one address. It is a
// plain persistence wrapper, rebuilt from storage on every read; the forward
// only status rule is enforced by the caller, not here.
type Identity struct {
	address ethereum.Address
	key     string

	status      *storage.ScalarSlot
	errorSlot   *storage.ScalarSlot
	reason      *storage.ScalarSlot
	result      *storage.ScalarSlot
	applicantID *storage.ScalarSlot
	checkID     *storage.ScalarSlot
	checks      *storage.RecordSet

	store *storage.RedisStorage
}

// New validates address and binds a record to its storage key. Invalid
// addresses are rejected here, before any store operation can happen.
func New(store *storage.RedisStorage, address string) (*Identity, error) {
	addr, err := common.ValidateAddress(address)
	if err != nil {
		return nil, err
	}
	key := keyPrefix + common.NormalizeAddress(addr)
	return &Identity{
		address:     addr,
		key:         key,
		status:      store.ScalarSlot(key, "status"),
		errorSlot:   store.ScalarSlot(key, "error"),
		reason:      store.ScalarSlot(key, "reason"),
		result:      store.ScalarSlot(key, "result"),
		applicantID: store.ScalarSlot(key, "applicantId"),
		checkID:     store.ScalarSlot(key, "checkId"),
		checks:      store.RecordSet(key, "checks"),
		store:       store,
	}, nil
}

func (self *Identity) Address() ethereum.Address {
	return self.address
}

func (self *Identity) Key() string {
	return self.key
}

func (self *Identity) Exists(ctx context.Context) (bool, error) {
	return self.store.Exists(ctx, self.key)
}

// GetData fetches the four scalar outcome fields concurrently. Any failed
// fetch fails the whole call, no partial state is returned.
func (self *Identity) GetData(ctx context.Context) (common.IdentityData, error) {
	var (
		wg     sync.WaitGroup
		values [4]string
		errs   [4]error
	)
	slots := []*storage.ScalarSlot{self.errorSlot, self.reason, self.result, self.status}
	for i, slot := range slots {
		wg.Add(1)
		go func(i int, slot *storage.ScalarSlot) {
			defer wg.Done()
			values[i], errs[i] = slot.Get(ctx)
		}(i, slot)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return common.IdentityData{}, err
		}
	}
	status := common.KYCStatus(values[3])
	if status == "" {
		status = common.StatusUnknown
	}
	return common.IdentityData{
		Error:  values[0],
		Reason: values[1],
		Result: values[2],
		Status: status,
	}, nil
}

// SetData writes the four scalar outcome fields concurrently with the same
// fail-fast contract as GetData. A failure partway is reported as a failure.
func (self *Identity) SetData(ctx context.Context, data common.IdentityData) error {
	var (
		wg   sync.WaitGroup
		errs [4]error
	)
	writes := []struct {
		slot  *storage.ScalarSlot
		value string
	}{
		{self.errorSlot, data.Error},
		{self.reason, data.Reason},
		{self.result, data.Result},
		{self.status, string(data.Status)},
	}
	for i, write := range writes {
		wg.Add(1)
		go func(i int, slot *storage.ScalarSlot, value string) {
			defer wg.Done()
			errs[i] = slot.Set(ctx, value)
		}(i, write.slot, write.value)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (self *Identity) Status(ctx context.Context) (common.KYCStatus, error) {
	value, err := self.status.Get(ctx)
	if err != nil {
		return common.StatusUnknown, err
	}
	if value == "" {
		return common.StatusUnknown, nil
	}
	return common.KYCStatus(value), nil
}

func (self *Identity) ApplicantID(ctx context.Context) (string, error) {
	return self.applicantID.Get(ctx)
}

func (self *Identity) SetApplicantID(ctx context.Context, id string) error {
	return self.applicantID.Set(ctx, id)
}

func (self *Identity) CheckID(ctx context.Context) (string, error) {
	return self.checkID.Get(ctx)
}

func (self *Identity) SetCheckID(ctx context.Context, id string) error {
	return self.checkID.Set(ctx, id)
}

func (self *Identity) AddCheck(ctx context.Context, check common.CheckRecord) error {
	return self.checks.Store(ctx, check)
}

func (self *Identity) CheckCount(ctx context.Context) (int, error) {
	return self.checks.Count(ctx)
}

// Checks returns every stored check submission in insertion order.
func (self *Identity) Checks(ctx context.Context) ([]common.CheckRecord, error) {
	blobs, err := self.checks.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]common.CheckRecord, 0, len(blobs))
	for _, blob := range blobs {
		var record common.CheckRecord
		if err := json.Unmarshal(blob, &record); err != nil {
			return nil, common.NewDataCorruptionError("check record under %s holds malformed JSON: %s", self.key, err.Error())
		}
		records = append(records, record)
	}
	return records, nil
}
