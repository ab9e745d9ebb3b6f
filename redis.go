package delay

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the Archive in Redis or Valkey as a list of records
// and a clock value, replaced atomically by a Lua script
type RedisStore struct {
	client    *redis.Client
	saveLua   *redis.Script
	loadLua   *redis.Script
	recordKey string
	clockKey  string
}

const (
	RedisConnectTimeout = 5 * time.Second

	recordsSuffix = ":records"
	clockSuffix   = ":clock"
)

// ErrUnexpectedLuaResult indicates a Lua script returned an unexpected shape
var ErrUnexpectedLuaResult = errors.New("unexpected result from Lua script")

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis using the store configuration
func NewRedisStore(ctx context.Context, cfg StoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, RedisConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &RedisStore{
		client:    client,
		saveLua:   redis.NewScript(luaSaveArchive),
		loadLua:   redis.NewScript(luaLoadArchive),
		recordKey: prefix + recordsSuffix,
		clockKey:  prefix + clockSuffix,
	}, nil
}

// Save replaces the stored Archive
func (s *RedisStore) Save(ctx context.Context, a *Archive) error {
	keys := []string{s.recordKey, s.clockKey}
	args := make([]any, 0, len(a.Records)+1)
	args = append(args, strconv.FormatInt(int64(a.Clock), 10))
	for _, rec := range a.Records {
		args = append(args, string(rec))
	}

	res, err := s.saveLua.Run(ctx, s.client, keys, args...).Int64()
	if err != nil {
		return err
	}
	if res != int64(len(a.Records)) {
		return ErrUnexpectedLuaResult
	}
	return nil
}

// Load reads the stored Archive
func (s *RedisStore) Load(ctx context.Context) (*Archive, error) {
	keys := []string{s.recordKey, s.clockKey}
	result, err := s.loadLua.Run(ctx, s.client, keys).Result()
	if err != nil {
		return nil, err
	}

	res, ok := result.([]any)
	if !ok || len(res) != 2 {
		return nil, ErrUnexpectedLuaResult
	}

	clockStr, ok := res[0].(string)
	if !ok {
		return nil, ErrUnexpectedLuaResult
	}
	clock, err := strconv.ParseInt(clockStr, 10, 64)
	if err != nil {
		return nil, err
	}

	raws, ok := res[1].([]any)
	if !ok {
		return nil, ErrUnexpectedLuaResult
	}

	archive := &Archive{
		Clock:   Tick(clock),
		Records: make([]json.RawMessage, 0, len(raws)),
	}
	for _, item := range raws {
		str, ok := item.(string)
		if !ok {
			return nil, ErrUnexpectedLuaResult
		}
		archive.Records = append(archive.Records, json.RawMessage(str))
	}
	return archive, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
