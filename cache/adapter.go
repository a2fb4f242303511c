// Package cache holds the status board store and the transition channel.
// Both run in-process unless a Redis address is configured.
package cache

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/kasuganosora/subwars/cache/local"
	cacheredis "github.com/kasuganosora/subwars/cache/redis"
)

// Store is the key/value surface of the status board.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error

	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	io.Closer
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// Config selects and tunes the backend.
type Config struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

func (c Config) redis() cacheredis.Config {
	return cacheredis.Config{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// NewStore returns a Redis store if RedisAddr is set, otherwise an
// in-process one.
func NewStore(cfg Config) (Store, error) {
	if cfg.RedisAddr != "" {
		c, err := cacheredis.New(cfg.redis())
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return local.NewStore(local.Config{GCInterval: cfg.LocalGCInterval}), nil
}

// NewPubSub returns a Redis pub/sub if RedisAddr is set, otherwise an
// in-process one.
func NewPubSub(cfg Config) (PubSub, error) {
	if cfg.RedisAddr != "" {
		c, err := cacheredis.New(cfg.redis())
		if err != nil {
			return nil, err
		}
		return redisPubSub{c: c}, nil
	}
	return localPubSub{ps: local.NewPubSub(cfg.LocalPubSubBuf)}, nil
}

type localPubSub struct{ ps *local.PubSub }

func (a localPubSub) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a localPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return relay(in, func(m *local.Message) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}

type redisPubSub struct{ c *cacheredis.Client }

func (a redisPubSub) Publish(ctx context.Context, channel, message string) error {
	return a.c.Publish(ctx, channel, message)
}

func (a redisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := a.c.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return relay(in, func(m *cacheredis.Message) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}

func relay[T any](in <-chan T, conv func(T) *Message) <-chan *Message {
	out := make(chan *Message, cap(in))
	go func() {
		defer close(out)
		for m := range in {
			out <- conv(m)
		}
	}()
	return out
}

// IsNotFound reports whether err means the key does not exist, whichever
// backend returned it.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}
