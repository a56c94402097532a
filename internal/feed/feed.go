// Package feed delivers model notifications to subscribers in commit order.
package feed

import (
	"sync"
	"time"
)

// Kind is the type of change.
type Kind string

const (
	Created      Kind = "created"
	Transitioned Kind = "transitioned"
	Deleted      Kind = "deleted"
)

// Notification refers to a model by id. Subscribers re-read the model instead of trusting
// the carried state, so a repeated delivery is harmless.
type Notification struct {
	Seq     uint64
	Kind    Kind
	ModelID string
	State   string
	At      time.Time
}

// Feed fans out notifications. Publish never blocks on slow subscribers: every subscriber
// owns an unbounded queue drained by its own goroutine.
type Feed struct {
	mu     sync.Mutex
	seq    uint64
	subs   map[int]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	mu     sync.Mutex
	queue  []Notification
	wake   chan struct{}
	out    chan Notification
	done   chan struct{}
	closed bool
}

func New() *Feed {
	return &Feed{subs: make(map[int]*subscriber)}
}

// Publish stamps n with the next sequence number and enqueues it for every subscriber.
func (f *Feed) Publish(n Notification) Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return n
	}
	f.seq++
	n.Seq = f.seq
	for _, s := range f.subs {
		s.push(n)
	}
	return n
}

// Subscribe returns a channel of notifications published from now on and a cancel function.
// The channel is closed after cancel or Close.
func (f *Feed) Subscribe() (<-chan Notification, func()) {
	s := &subscriber{
		wake: make(chan struct{}, 1),
		out:  make(chan Notification),
		done: make(chan struct{}),
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(s.out)
		return s.out, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = s
	f.mu.Unlock()

	go s.pump()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			s.stop()
		})
	}
	return s.out, cancel
}

// Close stops every subscriber; later publishes are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	subs := f.subs
	f.subs = make(map[int]*subscriber)
	f.mu.Unlock()
	for _, s := range subs {
		s.stop()
	}
}

func (s *subscriber) push(n Notification) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, n)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		n := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		select {
		case s.out <- n:
		case <-s.done:
			return
		}
	}
}
