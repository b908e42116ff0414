// Package redis is a shared storage.Store on Redis.
//
// Update runs as an optimistic WATCH/MULTI/EXEC transaction: every key the
// callback reads is watched before it is read, writes are buffered and
// flushed in one MULTI block, and the whole callback is re-run when EXEC
// reports a conflict.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"xdao.co/custodian/storage"
)

const (
	defaultPrefix = "custodian:"
	maxRetries    = 32
)

func init() {
	storage.MustRegister(storage.Backend{
		Name:        "redis",
		Description: "Redis server (options: addr, password, db, prefix)",
		Open: func(opts map[string]string) (storage.Store, error) {
			if opts["addr"] == "" {
				return nil, errors.New("redis: addr is required")
			}
			db := 0
			if v := opts["db"]; v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("redis: invalid db %q: %w", v, err)
				}
				db = n
			}
			client := redis.NewClient(&redis.Options{
				Addr:     opts["addr"],
				Password: opts["password"],
				DB:       db,
			})
			return New(client, opts["prefix"]), nil
		},
	})
}

type Store struct {
	client redis.UniversalClient
	prefix string
}

// New wraps client. Keys are namespaced under prefix ("custodian:" if empty).
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k string) string { return s.prefix + "kv:" + k }
func (s *Store) seqKey() string      { return s.prefix + "seq" }
func (s *Store) entryKey(seq uint64) string {
	return fmt.Sprintf("%sentry:%020d", s.prefix, seq)
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := &tx{ctx: ctx, s: s, rtx: rtx, writes: map[string][]byte{}}
			if err := fn(t); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for k, v := range t.writes {
					pipe.Set(ctx, s.key(k), v, 0)
				}
				if len(t.appended) > 0 {
					for i, v := range t.appended {
						pipe.Set(ctx, s.entryKey(t.seq+uint64(i)+1), v, 0)
					}
					pipe.Set(ctx, s.seqKey(), t.seq+uint64(len(t.appended)), 0)
				}
				return nil
			})
			return err
		})
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return mapErr(err)
	}
	return fmt.Errorf("%w after %d attempts", storage.ErrConflict, maxRetries)
}

func (s *Store) View(ctx context.Context, fn func(storage.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(reader{ctx: ctx, s: s})
}

func (s *Store) Entries(ctx context.Context, after uint64, limit int) ([]storage.Entry, error) {
	last, err := s.client.Get(ctx, s.seqKey()).Uint64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	if after >= last {
		return nil, nil
	}
	end := last
	if limit > 0 && after+uint64(limit) < end {
		end = after + uint64(limit)
	}
	keys := make([]string, 0, end-after)
	for seq := after + 1; seq <= end; seq++ {
		keys = append(keys, s.entryKey(seq))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]storage.Entry, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("redis: missing log entry %d", after+uint64(i)+1)
		}
		out = append(out, storage.Entry{Seq: after + uint64(i) + 1, Value: []byte(str)})
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func mapErr(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return storage.ErrClosed
	}
	return err
}

type reader struct {
	ctx context.Context
	s   *Store
}

func (r reader) Get(key string) ([]byte, error) {
	v, err := r.s.client.Get(r.ctx, r.s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	return v, mapErr(err)
}

type tx struct {
	ctx    context.Context
	s      *Store
	rtx    *redis.Tx
	writes map[string][]byte

	seqLoaded bool
	seq       uint64
	appended  [][]byte
}

func (t *tx) Get(key string) ([]byte, error) {
	if v, ok := t.writes[key]; ok {
		return append([]byte(nil), v...), nil
	}
	k := t.s.key(key)
	if err := t.rtx.Watch(t.ctx, k).Err(); err != nil {
		return nil, mapErr(err)
	}
	v, err := t.rtx.Get(t.ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	return v, mapErr(err)
}

func (t *tx) Put(key string, value []byte) error {
	t.writes[key] = append([]byte{}, value...)
	return nil
}

func (t *tx) Insert(key string, value []byte) error {
	_, err := t.Get(key)
	if err == nil {
		return storage.ErrExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return t.Put(key, value)
}

func (t *tx) Append(value []byte) (uint64, error) {
	if !t.seqLoaded {
		k := t.s.seqKey()
		if err := t.rtx.Watch(t.ctx, k).Err(); err != nil {
			return 0, mapErr(err)
		}
		seq, err := t.rtx.Get(t.ctx, k).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, mapErr(err)
		}
		t.seq = seq
		t.seqLoaded = true
	}
	t.appended = append(t.appended, append([]byte{}, value...))
	return t.seq + uint64(len(t.appended)), nil
}
