package storage

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/kigawas/certifier-website/common"
)

// RedisStorage wraps a redis client with the two primitives every entity in
// this system is persisted with: a single scalar value under a hash field,
// and an ordered-unique set of JSON records indexed by one hash field.
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (self *RedisStorage) Exists(ctx context.Context, key string) (bool, error) {
	n, err := self.client.Exists(ctx, key).Result()
	if err != nil {
		return false, common.NewExternalServiceError("store exists %s: %s", key, err.Error())
	}
	return n > 0, nil
}

func (self *RedisStorage) ScalarSlot(key, field string) *ScalarSlot {
	return &ScalarSlot{client: self.client, key: key, field: field}
}

func (self *RedisStorage) RecordSet(key, field string) *RecordSet {
	return &RecordSet{client: self.client, key: key, field: field}
}

// ScalarSlot holds one scalar value in hash field `field` of hash `key`.
type ScalarSlot struct {
	client *redis.Client
	key    string
	field  string
}

// Get returns the stored value, or empty string when the field is unset.
func (self *ScalarSlot) Get(ctx context.Context) (string, error) {
	value, err := self.client.HGet(ctx, self.key, self.field).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", common.NewExternalServiceError("store get %s.%s: %s", self.key, self.field, err.Error())
	}
	return value, nil
}

// Set overwrites the field atomically. An empty value deletes the field so
// unset and empty are indistinguishable, matching Get.
func (self *ScalarSlot) Set(ctx context.Context, value string) error {
	var err error
	if value == "" {
		err = self.client.HDel(ctx, self.key, self.field).Err()
	} else {
		err = self.client.HSet(ctx, self.key, self.field, value).Err()
	}
	if err != nil {
		return common.NewExternalServiceError("store set %s.%s: %s", self.key, self.field, err.Error())
	}
	return nil
}

// Record is anything storable in a RecordSet. RecordID must be non empty.
type Record interface {
	RecordID() string
}

// RecordSet keeps an ordered-unique list of record ids as a JSON array in
// hash field `field`, and one JSON blob per record in `field:{id}`.
type RecordSet struct {
	client *redis.Client
	key    string
	field  string
}

func (self *RecordSet) blobField(id string) string {
	return self.field + ":" + id
}

func (self *RecordSet) ids(ctx context.Context) ([]string, error) {
	raw, err := self.client.HGet(ctx, self.key, self.field).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewExternalServiceError("store get index %s.%s: %s", self.key, self.field, err.Error())
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, common.NewDataCorruptionError("index %s.%s is not a JSON id array: %s", self.key, self.field, err.Error())
	}
	return ids, nil
}

// Store persists record under its id. Storing the same id twice overwrites
// the blob without duplicating the id in the index.
func (self *RecordSet) Store(ctx context.Context, record Record) error {
	id := record.RecordID()
	if id == "" {
		return common.NewValidationError("", "record id is required")
	}
	blob, err := json.Marshal(record)
	if err != nil {
		return common.NewExternalServiceError("can not marshal record %s: %s", id, err.Error())
	}
	ids, err := self.ids(ctx)
	if err != nil {
		return err
	}
	known := false
	for _, existing := range ids {
		if existing == id {
			known = true
			break
		}
	}
	if !known {
		ids = append(ids, id)
	}
	index, err := json.Marshal(ids)
	if err != nil {
		return common.NewExternalServiceError("can not marshal index: %s", err.Error())
	}
	pipe := self.client.TxPipeline()
	pipe.HSet(ctx, self.key, self.blobField(id), string(blob))
	pipe.HSet(ctx, self.key, self.field, string(index))
	if _, err := pipe.Exec(ctx); err != nil {
		return common.NewExternalServiceError("store record %s.%s: %s", self.key, id, err.Error())
	}
	return nil
}

// Get unmarshals the record stored under id into out. It returns false when
// no record exists. A stored blob that does not parse is data corruption,
// never an empty record.
func (self *RecordSet) Get(ctx context.Context, id string, out interface{}) (bool, error) {
	raw, err := self.client.HGet(ctx, self.key, self.blobField(id)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, common.NewExternalServiceError("store get record %s.%s: %s", self.key, id, err.Error())
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, common.NewDataCorruptionError("record %s.%s holds malformed JSON: %s", self.key, id, err.Error())
	}
	return true, nil
}

// GetAll returns the raw blob of every indexed record in index order, using
// a single batched fetch instead of one round trip per id.
func (self *RecordSet) GetAll(ctx context.Context) ([][]byte, error) {
	ids, err := self.ids(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = self.blobField(id)
	}
	values, err := self.client.HMGet(ctx, self.key, fields...).Result()
	if err != nil {
		return nil, common.NewExternalServiceError("store get records %s.%s: %s", self.key, self.field, err.Error())
	}
	result := make([][]byte, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			return nil, common.NewDataCorruptionError("record %s.%s is indexed but missing", self.key, ids[i])
		}
		result = append(result, []byte(raw))
	}
	return result, nil
}

// Count returns the index length.
func (self *RecordSet) Count(ctx context.Context) (int, error) {
	ids, err := self.ids(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
