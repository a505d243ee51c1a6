package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const kvBucket = "kv"

// boltEntry is the stored form of a KV value. TTLs are enforced by
// comparing ExpiresAt on read; bbolt serializes all writes so the
// read-check-write inside SetNX is atomic.
type boltEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *boltEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// BoltKV implements KV on an embedded bbolt database. It is the
// single-node fallback when no Redis is configured; it does not provide
// a Bus (pair it with the in-process MemoryRepository bus).
type BoltKV struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens or creates a bbolt-backed KV at path.
func OpenBolt(path string) (*BoltKV, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(kvBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltKV{db: db, now: time.Now}, nil
}

func (b *BoltKV) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var won bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(kvBucket))
		if data := bucket.Get([]byte(key)); data != nil {
			var existing boltEntry
			if err := json.Unmarshal(data, &existing); err == nil && !existing.expired(b.now()) {
				return nil
			}
		}
		won = true
		return b.put(bucket, key, value, ttl)
	})
	return won, err
}

func (b *BoltKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(kvBucket)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		var entry boltEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("corrupt entry for %s: %w", key, err)
		}
		if entry.expired(b.now()) {
			return ErrNotFound
		}
		value = append([]byte(nil), entry.Value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *BoltKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return b.put(tx.Bucket([]byte(kvBucket)), key, value, ttl)
	})
}

func (b *BoltKV) Del(ctx context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(kvBucket)).Delete([]byte(key))
	})
}

func (b *BoltKV) put(bucket *bolt.Bucket, key string, value []byte, ttl time.Duration) error {
	entry := boltEntry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = b.now().Add(ttl)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	return bucket.Put([]byte(key), data)
}

// Close closes the underlying database.
func (b *BoltKV) Close() error {
	return b.db.Close()
}
