package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const maxConflictRetries = 3

// KV wraps a Badger database holding short-lived, per-session state such as
// refresh sessions and autosave checkpoints. Values are JSON.
type KV struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenKV opens the key-value store at path. An empty path opens an
// in-memory store.
func OpenKV(path string, logger *slog.Logger) (*KV, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return &KV{db: db, logger: logger}, nil
}

// Close gracefully closes the database.
func (kv *KV) Close() error {
	if kv.logger != nil {
		kv.logger.Info("Closing key-value store")
	}
	return kv.db.Close()
}

// Get decodes the value at key into dest. Returns ErrNotFound when the key
// is missing or expired.
func (kv *KV) Get(key string, dest any) error {
	return kv.db.View(func(txn *badger.Txn) error {
		return (&KVTxn{txn: txn}).Get(key, dest)
	})
}

// Set stores value at key. A positive ttl expires the key.
func (kv *KV) Set(key string, value any, ttl time.Duration) error {
	return kv.Update(func(tx *KVTxn) error {
		return tx.Set(key, value, ttl)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (kv *KV) Delete(key string) error {
	return kv.Update(func(tx *KVTxn) error {
		return tx.Delete(key)
	})
}

// Exists checks if a key exists.
func (kv *KV) Exists(key string) (bool, error) {
	err := kv.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CollectGarbage rewrites value log files until one pass reclaims nothing.
// It returns the number of files rewritten. In-memory stores have no value
// log and return zero.
func (kv *KV) CollectGarbage(discardRatio float64) (int, error) {
	if kv.db.Opts().InMemory {
		return 0, nil
	}
	rewritten := 0
	for {
		err := kv.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return rewritten, nil
		}
		if err != nil {
			return rewritten, err
		}
		rewritten++
	}
}

// Update runs fn in a read-write transaction. Transactions that lose a
// write conflict are retried.
func (kv *KV) Update(fn func(tx *KVTxn) error) error {
	var err error
	for range maxConflictRetries {
		err = kv.db.Update(func(txn *badger.Txn) error {
			return fn(&KVTxn{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// KVTxn is a key-value transaction.
type KVTxn struct {
	txn *badger.Txn
}

// Get decodes the value at key into dest. Returns ErrNotFound when missing.
func (tx *KVTxn) Get(key string, dest any) error {
	item, err := tx.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// Set stores value at key. A positive ttl expires the key.
func (tx *KVTxn) Set(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	entry := badger.NewEntry([]byte(key), data)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return tx.txn.SetEntry(entry)
}

// Delete removes key.
func (tx *KVTxn) Delete(key string) error {
	return tx.txn.Delete([]byte(key))
}
