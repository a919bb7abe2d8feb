// Package boltstore keeps records in an embedded key/value database. It is
// the usual target when migrating off the flat file.
package boltstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/okian/flatboard/internal/adapters/flatfile"
	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/pkg/logger"
)

var (
	mode          = 0o600
	recordsBucket = []byte("records")
	uuidBucket    = []byte("uuids")
)

// Store is a record store backed by boltdb. Records are keyed by lower-case
// name; a second bucket maps UUIDs to those keys. Values are encoded with
// the flat-file line codec.
type Store struct {
	db          *bolt.DB
	log         logger.Logger
	openTimeout time.Duration
	noSync      bool
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		log:         logger.Get().Named("boltstore"),
		openTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bolt.Open(path, os.FileMode(mode), &bolt.Options{Timeout: s.openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}
	db.NoSync = s.noSync

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{recordsBucket, uuidBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func nameKey(name string) []byte {
	return []byte(strings.ToLower(name))
}

// Put writes r, replacing any record with the same name or UUID.
func (s *Store) Put(r model.Record) error {
	if r.Name == "" {
		return ErrEmptyName
	}
	key := nameKey(r.Name)
	val := []byte(flatfile.Encode(r))

	return s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		ids := tx.Bucket(uuidBucket)

		// The entity previously stored under this name loses its index entry.
		if prev := records.Get(key); prev != nil {
			if old, err := decode(prev); err == nil && old.HasUUID() && old.UUID != r.UUID {
				oldID := []byte(old.UUID.String())
				if string(ids.Get(oldID)) == string(key) {
					if err := ids.Delete(oldID); err != nil {
						return err
					}
				}
			}
		}

		if r.HasUUID() {
			id := []byte(r.UUID.String())
			// A renamed entity leaves its old name key behind.
			if old := ids.Get(id); old != nil && string(old) != string(key) {
				if err := records.Delete(old); err != nil {
					return err
				}
			}
			if err := ids.Put(id, key); err != nil {
				return err
			}
		}
		return records.Put(key, val)
	})
}

// SaveRecord stores r and reports success. Failures are logged.
func (s *Store) SaveRecord(ctx context.Context, r model.Record) bool {
	if err := s.Put(r); err != nil {
		s.log.Error(ctx, "failed to store record", logger.String("name", r.Name), logger.Error(err))
		return false
	}
	return true
}

// Get looks a record up by UUID when id is set, otherwise by name.
func (s *Store) Get(name string, id uuid.UUID) (model.Record, error) {
	var out model.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		key := nameKey(name)
		if id != uuid.Nil {
			if k := tx.Bucket(uuidBucket).Get([]byte(id.String())); k != nil {
				key = k
			}
		}
		val := tx.Bucket(recordsBucket).Get(key)
		if val == nil {
			return ErrNotFound
		}
		r, err := decode(val)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// Delete removes the record stored under name.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		key := nameKey(name)
		val := records.Get(key)
		if val == nil {
			return ErrNotFound
		}
		if r, err := decode(val); err == nil && r.HasUUID() {
			if err := tx.Bucket(uuidBucket).Delete([]byte(r.UUID.String())); err != nil {
				return err
			}
		}
		return records.Delete(key)
	})
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(recordsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// ScanRecords streams every record in key order. Undecodable values are
// logged and skipped.
func (s *Store) ScanRecords(ctx context.Context, fn func(model.Record)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := decode(v)
			if err != nil {
				s.log.Warn(ctx, "skipping unreadable record", logger.String("key", string(k)), logger.Error(err))
				continue
			}
			fn(r)
		}
		return nil
	})
}

func decode(val []byte) (model.Record, error) {
	f, err := flatfile.Decode(string(val))
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	r, err := flatfile.Build(f)
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return r, nil
}
