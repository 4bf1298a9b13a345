package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Layout: receipts/<service id>/<event id> -> JSON Receipt.
var receiptsBucket = []byte("receipts")

type boltStore struct {
	db   *bolt.DB
	ttl  time.Duration
	now  func() time.Time
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(receiptsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	s := &boltStore{
		db:   db,
		ttl:  opts.ReceiptTTL,
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if _, err := s.sweep(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initial sweep: %w", err)
	}

	s.wg.Add(1)
	go s.sweepLoop(opts.CleanupInterval)
	return s, nil
}

// Close stops the sweeper and closes the database.
func (s *boltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	return s.db.Close()
}

// Lookup returns the unexpired receipt for the pair, if any.
func (s *boltStore) Lookup(serviceID, eventID string) (Receipt, bool, error) {
	if err := validPair(serviceID, eventID); err != nil {
		return Receipt{}, false, err
	}

	var (
		rec   Receipt
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		svc := tx.Bucket(receiptsBucket).Bucket([]byte(serviceID))
		if svc == nil {
			return nil
		}
		raw := svc.Get([]byte(eventID))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode receipt %s/%s: %w", serviceID, eventID, err)
		}
		found = rec.ExpiresAt.After(s.now())
		return nil
	})
	if err != nil || !found {
		return Receipt{}, false, err
	}
	return rec, true, nil
}

// Record stores r for the pair. DeliveredAt defaults to now and ExpiresAt is
// always DeliveredAt plus the configured TTL.
func (s *boltStore) Record(serviceID, eventID string, r Receipt) error {
	if err := validPair(serviceID, eventID); err != nil {
		return err
	}
	if r.DeliveredAt.IsZero() {
		r.DeliveredAt = s.now()
	}
	r.DeliveredAt = r.DeliveredAt.UTC()
	r.ExpiresAt = r.DeliveredAt.Add(s.ttl)

	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		svc, err := tx.Bucket(receiptsBucket).CreateBucketIfNotExists([]byte(serviceID))
		if err != nil {
			return err
		}
		return svc.Put([]byte(eventID), raw)
	})
}

func (s *boltStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_, _ = s.sweep()
		}
	}
}

// sweep deletes expired or unreadable receipts and drops services left with
// none. It returns the number of receipts removed.
func (s *boltStore) sweep() (int, error) {
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(receiptsBucket)

		var services [][]byte
		if err := root.ForEachBucket(func(name []byte) error {
			services = append(services, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}

		for _, name := range services {
			svc := root.Bucket(name)
			var stale [][]byte
			kept := 0
			if err := svc.ForEach(func(k, v []byte) error {
				var rec Receipt
				if json.Unmarshal(v, &rec) == nil && rec.ExpiresAt.After(now) {
					kept++
					return nil
				}
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}); err != nil {
				return err
			}

			for _, k := range stale {
				if err := svc.Delete(k); err != nil {
					return err
				}
				removed++
			}
			if kept == 0 {
				if err := root.DeleteBucket(name); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return removed, err
}

func validPair(serviceID, eventID string) error {
	if strings.TrimSpace(serviceID) == "" || strings.TrimSpace(eventID) == "" {
		return errors.New("receipt needs a service id and an event id")
	}
	return nil
}
