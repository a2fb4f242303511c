package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/subwars/cache"
	"github.com/kasuganosora/subwars/game/agent"
	"github.com/kasuganosora/subwars/hook"
)

const (
	// StatusKey is the hash holding one snapshot per agent.
	StatusKey = "subwars:agents"
	// TransitionChannel carries every state transition as JSON.
	TransitionChannel = "subwars:transitions"
	// HeartbeatKey holds the time of the last snapshot publish.
	HeartbeatKey = "subwars:heartbeat"

	historyPrefix = "subwars:history:"
	boardHookName = "status_board"
)

// TransitionRecord is the wire form of a state transition.
type TransitionRecord struct {
	AgentID string `json:"agent_id"`
	Machine string `json:"machine"`
	From    string `json:"from"`
	To      string `json:"to"`
	AtMs    int64  `json:"at_ms"`
}

// Board is the status board: agent snapshots and recent transitions kept
// in the cache store so readers never touch a running agent.
type Board struct {
	store   cache.Store
	pubsub  cache.PubSub
	history int64
	logger  *zap.Logger
}

// NewBoard creates a Board keeping the last history transitions per agent.
// pubsub may be nil.
func NewBoard(store cache.Store, pubsub cache.PubSub, history int, logger *zap.Logger) *Board {
	if history <= 0 {
		history = 50
	}
	return &Board{store: store, pubsub: pubsub, history: int64(history), logger: logger}
}

// Publish stores the snapshots.
func (b *Board) Publish(ctx context.Context, snaps ...agent.Snapshot) error {
	for _, s := range snaps {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal snapshot %s: %w", s.ID, err)
		}
		if err := b.store.HSet(ctx, StatusKey, s.ID, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// Remove drops an agent from the board.
func (b *Board) Remove(ctx context.Context, id string) error {
	if err := b.store.HDel(ctx, StatusKey, id); err != nil {
		return err
	}
	return b.store.Del(ctx, historyPrefix+id)
}

// List returns every stored snapshot sorted by agent ID.
func (b *Board) List(ctx context.Context) ([]agent.Snapshot, error) {
	all, err := b.store.HGetAll(ctx, StatusKey)
	if err != nil {
		return nil, err
	}
	out := make([]agent.Snapshot, 0, len(all))
	for id, raw := range all {
		var s agent.Snapshot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			b.logger.Warn("skipping bad snapshot", zap.String("agent", id), zap.Error(err))
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the stored snapshot of one agent.
func (b *Board) Get(ctx context.Context, id string) (agent.Snapshot, error) {
	raw, err := b.store.HGet(ctx, StatusKey, id)
	if cache.IsNotFound(err) {
		return agent.Snapshot{}, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	if err != nil {
		return agent.Snapshot{}, err
	}
	var s agent.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return agent.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return s, nil
}

// History returns up to n recent transitions of an agent, newest first.
func (b *Board) History(ctx context.Context, id string, n int) ([]TransitionRecord, error) {
	if n <= 0 || int64(n) > b.history {
		n = int(b.history)
	}
	raws, err := b.store.LRange(ctx, historyPrefix+id, 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	out := make([]TransitionRecord, 0, len(raws))
	for _, raw := range raws {
		var r TransitionRecord
		if err := json.Unmarshal([]byte(raw), &r); err == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// Register records every transition fired on c.
func (b *Board) Register(c *hook.Center) {
	c.Register(hook.AfterTransition, 200, boardHookName, func(ctx context.Context, _ string, data any) (any, error) {
		if t, ok := data.(hook.Transition); ok {
			b.record(ctx, t)
		}
		return data, nil
	})
}

func (b *Board) record(ctx context.Context, t hook.Transition) {
	data, _ := json.Marshal(TransitionRecord{
		AgentID: t.AgentID, Machine: t.Machine, From: t.From, To: t.To, AtMs: t.At.Milliseconds(),
	})
	key := historyPrefix + t.AgentID
	if err := b.store.LPush(ctx, key, string(data)); err != nil {
		b.logger.Warn("board history push failed", zap.String("agent", t.AgentID), zap.Error(err))
		return
	}
	_ = b.store.LTrim(ctx, key, 0, b.history-1)
	if b.pubsub != nil {
		if err := b.pubsub.Publish(ctx, TransitionChannel, string(data)); err != nil {
			b.logger.Warn("transition publish failed", zap.Error(err))
		}
	}
}

// Heartbeat marks the board as fresh for ttl.
func (b *Board) Heartbeat(ctx context.Context, ttl time.Duration) error {
	return b.store.Set(ctx, HeartbeatKey, time.Now().UTC().Format(time.RFC3339Nano), ttl)
}

// LastHeartbeat returns the time of the last publish, or the zero time
// once the heartbeat expired.
func (b *Board) LastHeartbeat(ctx context.Context) time.Time {
	raw, err := b.store.Get(ctx, HeartbeatKey)
	if err != nil {
		if !cache.IsNotFound(err) {
			b.logger.Warn("heartbeat read failed", zap.Error(err))
		}
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
