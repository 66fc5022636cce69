package queue

import "sync"

// Keyed serializes operations per key. Operations submitted for the same
// key run in submission order and never overlap; operations for different
// keys never block each other.
type Keyed struct {
	mutex sync.Mutex
	tails map[int64]chan struct{}
}

func NewKeyed() *Keyed {
	return &Keyed{
		tails: make(map[int64]chan struct{}),
	}
}

// Do runs fn after every operation previously submitted for the same key
// has finished, then returns fn's error to the caller. The shared tail
// records completion only, so a failed fn never blocks the operations
// queued behind it.
func (q *Keyed) Do(key int64, fn func() error) error {
	done := make(chan struct{})

	q.mutex.Lock()
	prev := q.tails[key]
	q.tails[key] = done
	q.mutex.Unlock()

	if prev != nil {
		<-prev
	}

	defer func() {
		close(done)
		q.mutex.Lock()
		// Drop the entry when nobody queued up behind us
		if q.tails[key] == done {
			delete(q.tails, key)
		}
		q.mutex.Unlock()
	}()

	return fn()
}
