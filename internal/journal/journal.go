// Package journal keeps a local, persistent history of values sent to and
// received from the channel file. It lives outside the shared folder; the
// cloud-sync client never sees it.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "transfers"

// Direction says which way a value moved.
type Direction string

const (
	Sent     Direction = "sent"     // local clipboard → channel
	Received Direction = "received" // channel → local clipboard
)

// Entry is one recorded transfer.
type Entry struct {
	Seq       uint64    `json:"seq"`
	Time      time.Time `json:"time"`
	Direction Direction `json:"direction"`
	Kind      string    `json:"kind"`
	Size      int       `json:"size"`
	Hash      string    `json:"hash"`
	Source    string    `json:"source"`
	Preview   string    `json:"preview,omitempty"`
	Auto      bool      `json:"auto,omitempty"`
}

// Journal wraps a bbolt database.
type Journal struct {
	db    *bbolt.DB
	limit int
}

// Open opens or creates the journal at path, keeping at most limit entries
// (0 = unlimited).
func Open(path string, limit int) (*Journal, error) {
	// Timeout keeps a second process from hanging on the file lock.
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Journal{db: db, limit: limit}, nil
}

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

// Record appends e, assigning its sequence number (and time if unset), and
// prunes the oldest entries beyond the limit.
func (j *Journal) Record(e Entry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.Seq = seq
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		if err := b.Put(key(seq), data); err != nil {
			return err
		}
		return j.pruneLocked(b)
	})
}

func (j *Journal) pruneLocked(b *bbolt.Bucket) error {
	if j.limit <= 0 {
		return nil
	}
	c := b.Cursor()
	count := 0
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		count++
	}
	excess := count - j.limit
	if excess <= 0 {
		return nil
	}
	var stale [][]byte
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// List returns up to n entries, newest first (n <= 0 = all).
func (j *Journal) List(n int) ([]Entry, error) {
	var out []Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(out) >= n {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
