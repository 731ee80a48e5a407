// Package durability implements RTPS §8.4's TRANSIENT_LOCAL / PERSISTENT
// durability replay store: a disk-backed log of every sample Put per
// instance (no per-instance depth bound is applied; Purge is the only
// removal) that a late-joining reader with a matching durability QoS can
// replay on match, shaped like golib's nutsdb config component
// lifecycle shape —
// Init/Start/Reload/Stop around a single long-lived *nutsdb.DB — narrowed
// here to the embedded store itself rather than the full component/viper
// wiring, since durability has no reload-time config surface of its own.
package durability

import (
	"encoding/binary"
	"sync"

	"github.com/nutsdb/nutsdb"
)

// Record is one persisted sample, keyed by instance within a topic bucket.
type Record struct {
	InstanceKey []byte
	SeqNum      uint64
	Payload     []byte
}

// Store persists DataWriter history for TRANSIENT_LOCAL/PERSISTENT
// durability so it can be replayed to readers that match after the sample
// was written, per RTPS §8.4's durability policy.
type Store struct {
	mu sync.Mutex
	db *nutsdb.DB
}

// Open starts (creating if absent) the on-disk store rooted at dir.
func Open(dir string) (*Store, error) {
	opt := nutsdb.DefaultOptions
	opt.Dir = dir
	db, err := nutsdb.Open(opt)
	if err != nil {
		return nil, errOpen(dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) bucket(topic string) string { return "topic:" + topic }

// Put appends one sample for topic, overwriting only a record with the same
// instanceKey and SeqNum.
func (s *Store) Put(topic string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.bucket(topic)
	return s.db.Update(func(tx *nutsdb.Tx) error {
		key := encodeKey(rec.InstanceKey, rec.SeqNum)
		return tx.Put(bucket, key, rec.Payload, 0)
	})
}

// Replay invokes fn for every persisted sample under topic, oldest key
// order first, stopping early if fn returns false.
func (s *Store) Replay(topic string, fn func(rec Record) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.bucket(topic)
	return s.db.View(func(tx *nutsdb.Tx) error {
		entries, err := tx.GetAll(bucket)
		if err == nutsdb.ErrBucketNotFound || err == nutsdb.ErrBucketEmpty {
			return nil
		}
		if err != nil {
			return err
		}
		for _, e := range entries {
			instanceKey, seq := decodeKey(e.Key)
			if !fn(Record{InstanceKey: instanceKey, SeqNum: seq, Payload: e.Value}) {
				return nil
			}
		}
		return nil
	})
}

// Purge drops every persisted sample for an instance, used when the
// instance transitions to NOT_ALIVE_DISPOSED (RTPS §8.4 instance lifecycle).
func (s *Store) Purge(topic string, instanceKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.bucket(topic)
	return s.db.Update(func(tx *nutsdb.Tx) error {
		entries, err := tx.GetAll(bucket)
		if err == nutsdb.ErrBucketNotFound || err == nutsdb.ErrBucketEmpty {
			return nil
		}
		if err != nil {
			return err
		}
		for _, e := range entries {
			ik, _ := decodeKey(e.Key)
			if string(ik) == string(instanceKey) {
				if err := tx.Delete(bucket, e.Key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// encodeKey lays out instanceKey followed by a big-endian sequence number
// so bucket iteration returns samples in write order within an instance.
func encodeKey(instanceKey []byte, seq uint64) []byte {
	out := make([]byte, len(instanceKey)+8)
	copy(out, instanceKey)
	binary.BigEndian.PutUint64(out[len(instanceKey):], seq)
	return out
}

func decodeKey(key []byte) ([]byte, uint64) {
	if len(key) < 8 {
		return key, 0
	}
	split := len(key) - 8
	return key[:split], binary.BigEndian.Uint64(key[split:])
}
