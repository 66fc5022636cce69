package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RunsInSubmissionOrder(t *testing.T) {
	q := NewKeyed()

	var got []int
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			// Stagger submissions so the submission order is deterministic
			time.Sleep(time.Duration(i*5) * time.Millisecond)
			_ = q.Do(1, func() error {
				got = append(got, i)
				return nil
			})
		}()
	}

	close(start)
	wg.Wait()

	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestDo_NeverOverlapsSameKey(t *testing.T) {
	q := NewKeyed()

	var running, maxRunning int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(7, func() error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxRunning, "operations for one key must be serialized")
}

func TestDo_FailureDoesNotPoisonQueue(t *testing.T) {
	q := NewKeyed()
	boom := errors.New("boom")

	err := q.Do(1, func() error { return boom })
	require.ErrorIs(t, err, boom)

	ran := false
	err = q.Do(1, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDo_DifferentKeysRunConcurrently(t *testing.T) {
	q := NewKeyed()

	blocked := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = q.Do(1, func() error {
			close(blocked)
			<-release
			return nil
		})
	}()

	<-blocked

	done := make(chan struct{})
	go func() {
		_ = q.Do(2, func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("operation on another key was blocked")
	}
	close(release)
}

func TestDo_CleansUpIdleKeys(t *testing.T) {
	q := NewKeyed()

	for i := 0; i < 10; i++ {
		_ = q.Do(int64(i), func() error { return nil })
	}

	q.mutex.Lock()
	defer q.mutex.Unlock()
	assert.Empty(t, q.tails)
}
