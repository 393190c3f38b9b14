package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	n int
}

func TestStore_InsertIfAbsent(t *testing.T) {
	s := New[string, record]()

	assert.True(t, s.InsertIfAbsent("a", &record{n: 1}))
	assert.False(t, s.InsertIfAbsent("a", &record{n: 2}))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got.n)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_CompareAndReplace_Identity(t *testing.T) {
	s := New[string, record]()
	first := &record{n: 1}
	require.True(t, s.InsertIfAbsent("a", first))

	// structurally equal but a different snapshot
	assert.False(t, s.CompareAndReplace("a", &record{n: 1}, &record{n: 2}))

	second := &record{n: 2}
	assert.True(t, s.CompareAndReplace("a", first, second))
	// stale snapshot no longer wins
	assert.False(t, s.CompareAndReplace("a", first, &record{n: 3}))

	got, _ := s.Get("a")
	assert.Same(t, second, got)
}

func TestStore_CompareAndReplace_MissingKey(t *testing.T) {
	s := New[string, record]()
	assert.False(t, s.CompareAndReplace("nope", &record{}, &record{}))
	assert.False(t, s.CompareAndReplace("nope", nil, &record{}))
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

func TestStore_Update(t *testing.T) {
	s := New[string, record]()
	s.InsertIfAbsent("a", &record{n: 1})

	next, err := s.Update("a", func(cur *record) (*record, error) {
		return &record{n: cur.n + 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, next.n)

	_, err = s.Update("missing", func(cur *record) (*record, error) { return cur, nil })
	assert.ErrorIs(t, err, common.ErrorNotFound)

	boom := errors.New("boom")
	_, err = s.Update("a", func(*record) (*record, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	got, _ := s.Get("a")
	assert.Equal(t, 2, got.n)
}

func TestStore_Update_ReportsConflict(t *testing.T) {
	var conflicts atomic.Int32
	s := New[string, record](WithConflictHook(func() { conflicts.Add(1) }))
	s.InsertIfAbsent("a", &record{n: 1})

	_, err := s.Update("a", func(cur *record) (*record, error) {
		// a concurrent writer commits between read and commit
		other, _ := s.Get("a")
		require.True(t, s.CompareAndReplace("a", other, &record{n: 100}))
		return &record{n: cur.n + 1}, nil
	})
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Equal(t, int32(1), conflicts.Load())

	got, _ := s.Get("a")
	assert.Equal(t, 100, got.n)
}

func TestStore_ConcurrentIncrementsAreLinearizable(t *testing.T) {
	s := New[string, record]()
	s.InsertIfAbsent("counter", &record{})

	const workers, perWorker = 16, 200
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.UpdateRetry("counter", func(cur *record) (*record, error) {
					return &record{n: cur.n + 1}, nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get("counter")
	assert.Equal(t, workers*perWorker, got.n)
}

func TestStore_ConcurrentInsertOneWinner(t *testing.T) {
	s := New[string, record]()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.InsertIfAbsent("k", &record{n: i}) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestStore_Range(t *testing.T) {
	s := New[string, record]()
	s.InsertIfAbsent("a", &record{n: 1})
	s.InsertIfAbsent("b", &record{n: 2})

	sum := 0
	s.Range(func(_ string, v *record) bool {
		sum += v.n
		return true
	})
	assert.Equal(t, 3, sum)

	s.Delete("a")
	_, ok := s.Get("a")
	assert.False(t, ok)
}
