package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix = "duel:room:"
	roomIndexKey  = "duel:rooms"
)

func roomKey(code string) string { return roomKeyPrefix + code }

// Redis keeps each room as a JSON string. Saves run inside WATCH/MULTI so a
// concurrent writer makes the transaction fail instead of clobbering it.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis wraps rdb. ttl bounds how long an abandoned room lingers; zero
// keeps rooms until they are deleted.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Create(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", doc.Room.Code, err)
	}
	ok, err := r.rdb.SetNX(ctx, roomKey(doc.Room.Code), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("create room %s: %w", doc.Room.Code, err)
	}
	if !ok {
		return ErrCodeTaken
	}
	if err := r.rdb.SAdd(ctx, roomIndexKey, doc.Room.Code).Err(); err != nil {
		return fmt.Errorf("index room %s: %w", doc.Room.Code, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, code string) (Document, error) {
	data, err := r.rdb.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get room %s: %w", code, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode room %s: %w", code, err)
	}
	return doc, nil
}

func (r *Redis) Save(ctx context.Context, doc Document, expected int) error {
	key := roomKey(doc.Room.Code)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", doc.Room.Code, err)
	}

	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur struct {
			Version int `json:"version"`
		}
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if cur.Version != expected {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrVersionConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrVersionConflict):
		return err
	default:
		return fmt.Errorf("save room %s: %w", doc.Room.Code, err)
	}
}

func (r *Redis) Delete(ctx context.Context, code string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(code))
		pipe.SRem(ctx, roomIndexKey, code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]Document, error) {
	codes, err := r.rdb.SMembers(ctx, roomIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if len(codes) == 0 {
		return []Document{}, nil
	}
	keys := make([]string, len(codes))
	for i, c := range codes {
		keys[i] = roomKey(c)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]Document, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// expired behind our back
			r.rdb.SRem(ctx, roomIndexKey, codes[i])
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, fmt.Errorf("decode room %s: %w", codes[i], err)
		}
		out = append(out, doc)
	}
	return out, nil
}
