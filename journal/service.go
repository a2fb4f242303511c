// Package journal persists agent transitions, finished commands and
// lifecycle events asynchronously in batches.
package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kasuganosora/subwars/hook"
	"github.com/kasuganosora/subwars/model"
)

const hookName = "journal"

// Options tunes the batch writer.
type Options struct {
	Buffer        int
	BatchSize     int
	FlushInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Buffer <= 0 {
		o.Buffer = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
	return o
}

// Service writes journal records from a background worker. Records are
// enqueued without blocking; when the buffer is full they are dropped.
type Service struct {
	db     *gorm.DB
	opts   Options
	ch     chan any
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a Service and starts its worker.
func New(db *gorm.DB, logger *zap.Logger, opts Options) *Service {
	opts = opts.withDefaults()
	svc := &Service{
		db:     db,
		opts:   opts,
		ch:     make(chan any, opts.Buffer),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Register subscribes the journal to the agent events of c.
func (svc *Service) Register(c *hook.Center) {
	c.Register(hook.AfterTransition, 100, hookName, func(_ context.Context, _ string, data any) (any, error) {
		if t, ok := data.(hook.Transition); ok {
			svc.Transition(t)
		}
		return data, nil
	})
	c.Register(hook.AfterCommandDone, 100, hookName, func(_ context.Context, _ string, data any) (any, error) {
		if d, ok := data.(hook.CommandDone); ok {
			svc.Command(d)
		}
		return data, nil
	})
	for _, event := range []string{hook.OnAgentSpawned, hook.OnAgentRemoved, hook.OnAgentFailed, hook.OnAgentNotified} {
		c.Register(event, 100, hookName, func(_ context.Context, event string, data any) (any, error) {
			if e, ok := data.(hook.AgentEvent); ok {
				svc.Event(event, e)
			}
			return data, nil
		})
	}
}

// Unregister removes the journal handlers from c.
func (svc *Service) Unregister(c *hook.Center) {
	c.UnregisterAll(hookName)
}

// Transition enqueues a state change.
func (svc *Service) Transition(t hook.Transition) {
	svc.enqueue(&model.TransitionLog{
		AgentID:   t.AgentID,
		Machine:   t.Machine,
		FromState: t.From,
		ToState:   t.To,
		SimTimeMs: t.At.Milliseconds(),
	}, "transition")
}

// Command enqueues a finished or cancelled command.
func (svc *Service) Command(d hook.CommandDone) {
	svc.enqueue(&model.CommandLog{
		AgentID:   d.AgentID,
		Command:   d.Command,
		Details:   d.Details,
		Phase:     d.Phase,
		Progress:  d.Progress,
		SimTimeMs: d.At.Milliseconds(),
	}, "command")
}

// Event enqueues a lifecycle event.
func (svc *Service) Event(event string, e hook.AgentEvent) {
	payload, _ := json.Marshal(map[string]string{"profile": e.Profile, "detail": e.Detail})
	svc.enqueue(&model.AgentEventLog{
		AgentID:   e.AgentID,
		Event:     event,
		Payload:   datatypes.JSON(payload),
		SimTimeMs: e.At.Milliseconds(),
	}, event)
}

func (svc *Service) enqueue(rec any, kind string) {
	select {
	case svc.ch <- rec:
	default:
		svc.logger.Warn("journal channel full, dropping record", zap.String("kind", kind))
	}
}

// Stop flushes pending records and waits for the worker to exit.
func (svc *Service) Stop(_ context.Context) {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

// batch groups pending records by table.
type batch struct {
	transitions []*model.TransitionLog
	commands    []*model.CommandLog
	events      []*model.AgentEventLog
}

func (b *batch) add(rec any) {
	switch r := rec.(type) {
	case *model.TransitionLog:
		b.transitions = append(b.transitions, r)
	case *model.CommandLog:
		b.commands = append(b.commands, r)
	case *model.AgentEventLog:
		b.events = append(b.events, r)
	}
}

func (b *batch) len() int {
	return len(b.transitions) + len(b.commands) + len(b.events)
}

func (svc *Service) flush(b *batch) {
	if b.len() == 0 {
		return
	}
	err := svc.db.Transaction(func(tx *gorm.DB) error {
		if len(b.transitions) > 0 {
			if err := tx.Create(&b.transitions).Error; err != nil {
				return err
			}
		}
		if len(b.commands) > 0 {
			if err := tx.Create(&b.commands).Error; err != nil {
				return err
			}
		}
		if len(b.events) > 0 {
			if err := tx.Create(&b.events).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		svc.logger.Error("journal batch write failed", zap.Error(err), zap.Int("records", b.len()))
	}
	*b = batch{}
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.opts.FlushInterval)
	defer ticker.Stop()

	var b batch
	for {
		select {
		case rec := <-svc.ch:
			b.add(rec)
			if b.len() >= svc.opts.BatchSize {
				svc.flush(&b)
			}
		case <-ticker.C:
			svc.flush(&b)
		case <-svc.stopCh:
			for {
				select {
				case rec := <-svc.ch:
					b.add(rec)
				default:
					svc.flush(&b)
					return
				}
			}
		}
	}
}

// Recent returns the latest transitions of an agent, newest first.
func (svc *Service) Recent(ctx context.Context, agentID string, limit int) ([]model.TransitionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []model.TransitionLog
	err := svc.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
