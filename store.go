package delay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type (
	// Store persists the pending events of a Session between runs
	Store interface {
		Save(context.Context, *Archive) error
		Load(context.Context) (*Archive, error)
		Close() error
	}

	// Archive is the persisted state of a Session: the clock and one raw
	// record per pending event. Records stay raw so that a single corrupt
	// record can be skipped at import time
	Archive struct {
		Records []json.RawMessage `json:"records"`
		Clock   Tick              `json:"clock"`
	}
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendBolt     = "bolt"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

var (
	// ErrUnknownBackend indicates the configured store backend is not known
	ErrUnknownBackend = errors.New("unknown store backend")

	// ErrStoreClosed indicates the Store was used after Close
	ErrStoreClosed = errors.New("store closed")
)

// NewArchive encodes the records into an Archive at the given clock
func NewArchive(clock Tick, recs []Record) (*Archive, error) {
	res := &Archive{
		Clock:   clock,
		Records: make([]json.RawMessage, 0, len(recs)),
	}
	for _, r := range recs {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %q: %w", r.ID, err)
		}
		res.Records = append(res.Records, data)
	}
	return res, nil
}

// OpenStore opens the Store selected by the configuration's Backend
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(nil, cfg.Path), nil
	case BackendBolt:
		return OpenBoltStore(cfg.Path)
	case BackendRedis:
		return NewRedisStore(ctx, cfg)
	case BackendPostgres:
		return OpenPostgresStore(ctx, cfg.PostgresURL)
	case BackendS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func emptyArchive() *Archive {
	return &Archive{Records: []json.RawMessage{}}
}
