// Copyright 2023 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketDocuments = "documents"

// expiryLen is the size of the expiry prefix of each stored value.
const expiryLen = 8

var errExpired = errors.New("entry expired")

// Bolt is a cache persisted in a bbolt database file.
// Each value is stored with its expiry time
// as a big-endian count of Unix nanoseconds.
type Bolt struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketDocuments))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	return &Bolt{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (c *Bolt) Close() error {
	return c.db.Close()
}

func (c *Bolt) get(key string) (string, error) {
	var value string
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketDocuments)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		if len(v) < expiryLen {
			return fmt.Errorf("corrupt entry %q", key)
		}
		expires := time.Unix(0, int64(binary.BigEndian.Uint64(v[:expiryLen])))
		if !c.now().Before(expires) {
			return errExpired
		}
		value = string(v[expiryLen:])
		return nil
	})
	if errors.Is(err, errExpired) {
		c.delete(key)
		return "", ErrNotFound
	}
	return value, err
}

func (c *Bolt) delete(key string) {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDocuments)).Delete([]byte(key))
	})
	if err != nil {
		tracer().Errorf("cache: delete expired %s: %v", key, err)
	}
}

// Has reports whether a live entry exists for key.
func (c *Bolt) Has(key string) bool {
	_, err := c.get(key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		tracer().Errorf("cache: %v", err)
	}
	return err == nil
}

// Get returns the value stored for key or [ErrNotFound].
func (c *Bolt) Get(key string) (string, error) {
	v, err := c.get(key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return v, err
}

// Store sets the value for key, expiring after ttl.
func (c *Bolt) Store(key, value string, ttl time.Duration) error {
	buf := make([]byte, expiryLen+len(value))
	binary.BigEndian.PutUint64(buf, uint64(c.now().Add(ttl).UnixNano()))
	copy(buf[expiryLen:], value)
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDocuments)).Put([]byte(key), buf)
	})
	if err != nil {
		return fmt.Errorf("cache store %s: %w", key, err)
	}
	tracer().Debugf("cache: stored %s (%d bytes)", key, len(value))
	return nil
}
