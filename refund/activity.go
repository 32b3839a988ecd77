package refund

import (
	"encoding/json"
	"sync"

	"github.com/boltdb/bolt"

	"github.com/kigawas/certifier-website/common"
)

const refundActivityBucket = "refund_activities"

// ActivityStorage records every refund submission with its tx hash. The
// reconciler consults it before resubmitting an entry, so a refund whose tx
// went out but whose queue removal failed is not sent twice.
type ActivityStorage struct {
	mu sync.RWMutex
	db *bolt.DB
}

func NewActivityStorage(path string) (*ActivityStorage, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, uErr := tx.CreateBucketIfNotExists([]byte(refundActivityBucket))
		return uErr
	})
	if err != nil {
		return nil, err
	}
	return &ActivityStorage{db: db}, nil
}

func activityKey(entry common.RefundEntry) []byte {
	return []byte(entry.Who + "|" + entry.Origin)
}

// Record stores the submitted tx hash for entry.
func (self *ActivityStorage) Record(entry common.RefundEntry, txHash string) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	activity := common.RefundActivity{
		Who:       entry.Who,
		Origin:    entry.Origin,
		TxHash:    txHash,
		Timepoint: common.GetTimepoint(),
	}
	blob, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return self.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(refundActivityBucket)).Put(activityKey(entry), blob)
	})
}

// Submitted reports whether a refund tx was already sent for entry.
func (self *ActivityStorage) Submitted(entry common.RefundEntry) (bool, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	var found bool
	err := self.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(refundActivityBucket)).Get(activityKey(entry)) != nil
		return nil
	})
	return found, err
}

// GetActivities returns every recorded refund submission.
func (self *ActivityStorage) GetActivities() ([]common.RefundActivity, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	result := []common.RefundActivity{}
	err := self.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(refundActivityBucket)).ForEach(func(k, v []byte) error {
			var activity common.RefundActivity
			if uErr := json.Unmarshal(v, &activity); uErr != nil {
				return common.NewDataCorruptionError("refund activity %s holds malformed JSON: %s", k, uErr.Error())
			}
			result = append(result, activity)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (self *ActivityStorage) Close() error {
	return self.db.Close()
}
