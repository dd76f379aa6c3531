package answerd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisQueue keeps the queue in three Redis hashes keyed by room, so several
// answerd processes can share it.
type RedisQueue struct {
	rdb    *redis.Client
	prefix string
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue wraps a connected client. Keys are namespaced with prefix.
func NewRedisQueue(rdb *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "askroom"
	}
	return &RedisQueue{rdb: rdb, prefix: prefix}
}

// DialRedisQueue connects to addr and checks the connection.
func DialRedisQueue(ctx context.Context, addr, password string, db int) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisQueue(rdb, ""), nil
}

func (q *RedisQueue) key(name string) string {
	return q.prefix + ":" + name
}

func (q *RedisQueue) PutQuestion(ctx context.Context, question Question) error {
	payload, err := json.Marshal(question)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	if err := q.rdb.HSet(ctx, q.key("questions"), question.Room, payload).Err(); err != nil {
		return fmt.Errorf("store question: %w", err)
	}
	return nil
}

func (q *RedisQueue) TakeQuestions(ctx context.Context) ([]Question, error) {
	fields, err := q.drain(ctx, q.key("questions"))
	if err != nil {
		return nil, err
	}

	out := make([]Question, 0, len(fields))
	for room, raw := range fields {
		var question Question
		if err := json.Unmarshal([]byte(raw), &question); err != nil {
			return nil, fmt.Errorf("decode question for room %s: %w", room, err)
		}
		out = append(out, question)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out, nil
}

func (q *RedisQueue) PutAnswer(ctx context.Context, a Answer) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	if err := q.rdb.HSet(ctx, q.key("answers"), a.Room, payload).Err(); err != nil {
		return fmt.Errorf("store answer: %w", err)
	}
	return nil
}

func (q *RedisQueue) TakeAnswer(ctx context.Context, room string) (string, error) {
	var get *redis.StringCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, q.key("answers"), room)
		pipe.HDel(ctx, q.key("answers"), room)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("take answer: %w", err)
	}

	var a Answer
	if err := json.Unmarshal([]byte(get.Val()), &a); err != nil {
		return "", fmt.Errorf("decode answer for room %s: %w", room, err)
	}
	return a.Text, nil
}

func (q *RedisQueue) PutDiscard(ctx context.Context, d Discard) error {
	questions, answers := q.key("questions"), q.key("answers")

	txf := func(tx *redis.Tx) error {
		dropQuestion, err := q.belongsTo(ctx, tx, questions, d)
		if err != nil {
			return err
		}
		dropAnswer, err := q.belongsTo(ctx, tx, answers, d)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, q.key("discards"), d.Room, d.ID)
			if dropQuestion {
				pipe.HDel(ctx, questions, d.Room)
			}
			if dropAnswer {
				pipe.HDel(ctx, answers, d.Room)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxDiscardRetries; attempt++ {
		err := q.rdb.Watch(ctx, txf, questions, answers)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("store discard: %w", err)
		}
		return nil
	}
	return fmt.Errorf("store discard: %w", redis.TxFailedErr)
}

const maxDiscardRetries = 5

// belongsTo reports whether the room's entry in hash was produced by d.ID or a later question.
func (q *RedisQueue) belongsTo(ctx context.Context, tx *redis.Tx, hash string, d Discard) (bool, error) {
	raw, err := tx.HGet(ctx, hash, d.Room).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", hash, err)
	}

	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return false, fmt.Errorf("decode %s for room %s: %w", hash, d.Room, err)
	}
	return notBefore(ref.ID, d.ID), nil
}

func (q *RedisQueue) TakeDiscards(ctx context.Context) ([]Discard, error) {
	fields, err := q.drain(ctx, q.key("discards"))
	if err != nil {
		return nil, err
	}

	out := make([]Discard, 0, len(fields))
	for room, id := range fields {
		out = append(out, Discard{Room: room, ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out, nil
}

// drain reads and deletes a whole hash atomically.
func (q *RedisQueue) drain(ctx context.Context, key string) (map[string]string, error) {
	var all *redis.MapStringStringCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		all = pipe.HGetAll(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drain %s: %w", key, err)
	}
	return all.Val(), nil
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}
