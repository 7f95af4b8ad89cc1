package memory

import (
	"context"
	"sync"

	"github.com/hafbjorn109/wiperino/internal/broadcast"
)

const subscriberBuffer = 256

type subscriber struct {
	ch   chan broadcast.Message
	done chan struct{}
}

// Transport is a process-local broadcast.Transport. Every subscriber sees
// every published message in publish order.
type Transport struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewTransport() *Transport {
	return &Transport{subs: make(map[*subscriber]struct{})}
}

func (t *Transport) Publish(ctx context.Context, msg broadcast.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for sub := range t.subs {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *Transport) Subscribe(ctx context.Context) (<-chan broadcast.Message, error) {
	sub := &subscriber{
		ch:   make(chan broadcast.Message, subscriberBuffer),
		done: make(chan struct{}),
	}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		// Unblock a publisher waiting on this subscriber before taking the lock.
		close(sub.done)
		t.mu.Lock()
		delete(t.subs, sub)
		close(sub.ch)
		t.mu.Unlock()
	}()

	return sub.ch, nil
}
