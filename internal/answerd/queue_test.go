package answerd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue(t *testing.T) {
	runQueueSuite(t, func(t *testing.T) Queue { return NewMemoryQueue() })
}

func TestSQLiteQueue(t *testing.T) {
	runQueueSuite(t, func(t *testing.T) Queue {
		q, err := NewSQLiteQueue(filepath.Join(t.TempDir(), "answerd.db"))
		require.NoError(t, err)
		return q
	})
}

func TestSQLiteQueueSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "answerd.db")

	q, err := NewSQLiteQueue(path)
	require.NoError(t, err)
	require.NoError(t, q.PutQuestion(ctx, Question{Room: "a", ID: "1", Text: "hi"}))
	require.NoError(t, q.Close())

	q, err = NewSQLiteQueue(path)
	require.NoError(t, err)
	defer q.Close()

	questions, err := q.TakeQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Question{{Room: "a", ID: "1", Text: "hi"}}, questions)
}

// TestRedisQueue needs a live server; set ASKROOM_TEST_REDIS_ADDR to run it.
func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("ASKROOM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ASKROOM_TEST_REDIS_ADDR not set")
	}

	runQueueSuite(t, func(t *testing.T) Queue {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		q := NewRedisQueue(rdb, "askroom-test:"+t.Name())
		t.Cleanup(func() {
			ctx := context.Background()
			rdb.Del(ctx, q.key("questions"), q.key("answers"), q.key("discards"))
		})
		return q
	})
}

func runQueueSuite(t *testing.T, newQueue func(t *testing.T) Queue) {
	t.Helper()

	t.Run("questions replace per room and drain", func(t *testing.T) {
		ctx := context.Background()
		q := newQueue(t)
		defer q.Close()

		require.NoError(t, q.PutQuestion(ctx, Question{Room: "b", ID: "10", Text: "first"}))
		require.NoError(t, q.PutQuestion(ctx, Question{Room: "b", ID: "11", Text: "second"}))
		require.NoError(t, q.PutQuestion(ctx, Question{Room: "a", ID: "12", Text: "other"}))

		questions, err := q.TakeQuestions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Question{
			{Room: "a", ID: "12", Text: "other"},
			{Room: "b", ID: "11", Text: "second"},
		}, questions)

		questions, err = q.TakeQuestions(ctx)
		require.NoError(t, err)
		assert.Empty(t, questions)
	})

	t.Run("answers are read once", func(t *testing.T) {
		ctx := context.Background()
		q := newQueue(t)
		defer q.Close()

		answer, err := q.TakeAnswer(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "", answer)

		require.NoError(t, q.PutAnswer(ctx, Answer{Room: "a", ID: "1", Text: "42"}))
		answer, err = q.TakeAnswer(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "42", answer)

		answer, err = q.TakeAnswer(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "", answer)
	})

	t.Run("discard drops later question and answer", func(t *testing.T) {
		ctx := context.Background()
		q := newQueue(t)
		defer q.Close()

		require.NoError(t, q.PutQuestion(ctx, Question{Room: "a", ID: "20", Text: "late"}))
		require.NoError(t, q.PutAnswer(ctx, Answer{Room: "a", ID: "15", Text: "for 15"}))
		require.NoError(t, q.PutDiscard(ctx, Discard{Room: "a", ID: "15"}))

		questions, err := q.TakeQuestions(ctx)
		require.NoError(t, err)
		assert.Empty(t, questions)

		answer, err := q.TakeAnswer(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "", answer)

		discards, err := q.TakeDiscards(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Discard{{Room: "a", ID: "15"}}, discards)

		discards, err = q.TakeDiscards(ctx)
		require.NoError(t, err)
		assert.Empty(t, discards)
	})

	t.Run("discard keeps earlier question and answer", func(t *testing.T) {
		ctx := context.Background()
		q := newQueue(t)
		defer q.Close()

		require.NoError(t, q.PutQuestion(ctx, Question{Room: "a", ID: "5", Text: "early"}))
		require.NoError(t, q.PutAnswer(ctx, Answer{Room: "a", ID: "4", Text: "for 4"}))
		require.NoError(t, q.PutDiscard(ctx, Discard{Room: "a", ID: "9"}))

		questions, err := q.TakeQuestions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Question{{Room: "a", ID: "5", Text: "early"}}, questions)

		answer, err := q.TakeAnswer(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "for 4", answer)
	})
}

func TestNotBefore(t *testing.T) {
	assert.True(t, notBefore("1700000000100", "1700000000100"))
	assert.True(t, notBefore("1700000000101", "1700000000100"))
	assert.False(t, notBefore("999", "1000"))
	assert.True(t, notBefore("b", "a"))
}
