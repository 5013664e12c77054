// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSamples = []byte("samples")

// Log is an append-mostly sample log backed by BoltDB. Keys are big endian
// nanosecond timestamps so a cursor walks samples in time order.
type Log struct {
	db *bolt.DB
}

// Open opens or creates the sample log at path.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open sample log: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSamples)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Log{db: db}, nil
}

func key(t time.Time) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(t.UnixNano()))
	return k
}

// Append records a sample. A sample with an identical timestamp is
// overwritten.
func (l *Log) Append(s Sample) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSamples)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSamples)
		}
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return b.Put(key(s.Time), data)
	})
}

// Latest returns the most recent sample. Returns ErrNotFound when the log is
// empty.
func (l *Log) Latest() (Sample, error) {
	var s Sample
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSamples)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSamples)
		}
		_, v := b.Cursor().Last()
		if v == nil {
			return fmt.Errorf("latest sample: %w", ErrNotFound)
		}
		return json.Unmarshal(v, &s)
	})
	return s, err
}

// Range returns all samples with from <= time <= to, oldest first.
func (l *Log) Range(from, to time.Time) ([]Sample, error) {
	var samples []Sample
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSamples)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSamples)
		}
		c := b.Cursor()
		max := key(to)
		for k, v := c.Seek(key(from)); k != nil && bytes.Compare(k, max) <= 0; k, v = c.Next() {
			var s Sample
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			samples = append(samples, s)
		}
		return nil
	})
	return samples, err
}

// Prune deletes all samples older than the given time and reports how many
// were removed.
func (l *Log) Prune(before time.Time) (int, error) {
	removed := 0
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSamples)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSamples)
		}
		c := b.Cursor()
		limit := key(before)
		for k, _ := c.First(); k != nil && bytes.Compare(k, limit) < 0; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func (l *Log) Close() error {
	return l.db.Close()
}
