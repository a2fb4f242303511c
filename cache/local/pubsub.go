package local

import (
	"context"
	"sync"
)

// Message is an in-process pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub fans messages out to in-process subscribers. A subscriber whose
// buffer is full misses the message.
type PubSub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan *Message]struct{}
	bufSize int
}

// NewPubSub creates a PubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *PubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &PubSub{subs: make(map[string]map[chan *Message]struct{}), bufSize: bufSize}
}

func (ps *PubSub) Publish(_ context.Context, channel, payload string) error {
	msg := &Message{Channel: channel, Payload: payload}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for ch := range ps.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe listens on channels until cancel is called; cancel closes the
// returned channel.
func (ps *PubSub) Subscribe(_ context.Context, channels ...string) (<-chan *Message, func(), error) {
	ch := make(chan *Message, ps.bufSize)
	ps.mu.Lock()
	for _, c := range channels {
		if ps.subs[c] == nil {
			ps.subs[c] = make(map[chan *Message]struct{})
		}
		ps.subs[c][ch] = struct{}{}
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			for _, c := range channels {
				delete(ps.subs[c], ch)
			}
			ps.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
