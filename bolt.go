package delay

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// BoltStore persists the Archive in a BoltDB file. Records are keyed by
// their position so that insertion order survives a reload
type BoltStore struct {
	db *bbolt.DB
}

const (
	boltRecordsBucket = "records"
	boltMetaBucket    = "meta"
	boltClockKey      = "clock"

	boltOpenTimeout = time.Second
)

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates a BoltDB-backed store at the provided path
func OpenBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("bolt store path is required")
	}

	db, err := bbolt.Open(
		filepath.Clean(path), 0o600, &bbolt.Options{Timeout: boltOpenTimeout},
	)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}

	s := &BoltStore{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Save replaces the stored Archive in a single transaction
func (s *BoltStore) Save(ctx context.Context, a *Archive) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(boltRecordsBucket)); err != nil {
			return fmt.Errorf("clear records bucket: %w", err)
		}
		recs, err := tx.CreateBucket([]byte(boltRecordsBucket))
		if err != nil {
			return fmt.Errorf("create records bucket: %w", err)
		}
		for i, rec := range a.Records {
			if err := recs.Put(sequenceKey(uint64(i)), rec); err != nil {
				return fmt.Errorf("put record %d: %w", i, err)
			}
		}

		meta := tx.Bucket([]byte(boltMetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket is missing")
		}
		return meta.Put([]byte(boltClockKey), sequenceKey(uint64(a.Clock)))
	})
}

// Load reads the stored Archive
func (s *BoltStore) Load(ctx context.Context) (*Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}

	res := emptyArchive()
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(boltMetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket is missing")
		}
		if clock := meta.Get([]byte(boltClockKey)); len(clock) == 8 {
			res.Clock = Tick(binary.BigEndian.Uint64(clock))
		}

		recs := tx.Bucket([]byte(boltRecordsBucket))
		if recs == nil {
			return fmt.Errorf("records bucket is missing")
		}
		return recs.ForEach(func(_, v []byte) error {
			res.Records = append(res.Records, json.RawMessage(bytes.Clone(v)))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying BoltDB database
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{boltRecordsBucket, boltMetaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
