package travel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// envelope is the wire form every publisher emits: the event name plus the
// event's own fields flattened alongside it.
func marshalEvent(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["event"] = ev.EventName()
	return json.Marshal(fields)
}

// LocalPublisher dispatches events synchronously to in-process subscribers
// keyed by event name, and records everything it publishes.
type LocalPublisher struct {
	mu       sync.Mutex
	handlers map[string][]func(context.Context, Event)
	history  []Event
}

// NewLocalPublisher constructs an empty publisher.
func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{handlers: make(map[string][]func(context.Context, Event))}
}

// Subscribe registers a handler for the named event.
func (p *LocalPublisher) Subscribe(name string, fn func(context.Context, Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[name] = append(p.handlers[name], fn)
}

// Publish records the event and invokes subscribers in registration order.
func (p *LocalPublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.Lock()
	p.history = append(p.history, ev)
	handlers := p.handlers[ev.EventName()]
	p.mu.Unlock()

	for _, fn := range handlers {
		fn(ctx, ev)
	}
	return nil
}

// History returns a copy of every published event in order.
func (p *LocalPublisher) History() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.history))
	copy(out, p.history)
	return out
}

// FanoutPublisher forwards each event to every configured publisher. All
// targets are attempted even when earlier ones fail.
type FanoutPublisher struct {
	targets []EventPublisher
}

// NewFanoutPublisher constructs a publisher that fan-outs to the targets.
func NewFanoutPublisher(targets ...EventPublisher) *FanoutPublisher {
	return &FanoutPublisher{targets: targets}
}

// Publish delivers the event to every target, joining their errors.
func (p *FanoutPublisher) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, target := range p.targets {
		if target == nil {
			continue
		}
		if err := target.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broadcaster pushes messages to connected clients.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// TerminalEventPublisher broadcasts only the outcome events, so connected
// clients see one completion or one failure per package and none of the
// intermediate step traffic.
type TerminalEventPublisher struct {
	broadcaster Broadcaster
}

// NewTerminalEventPublisher constructs a publisher over the broadcaster.
func NewTerminalEventPublisher(broadcaster Broadcaster) *TerminalEventPublisher {
	return &TerminalEventPublisher{broadcaster: broadcaster}
}

// Publish broadcasts package outcomes and ignores everything else.
func (p *TerminalEventPublisher) Publish(_ context.Context, ev Event) error {
	switch ev.(type) {
	case PackageCompleted, PackageFailed:
	default:
		return nil
	}

	data, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	if p.broadcaster != nil {
		p.broadcaster.Broadcast(data)
	}
	return nil
}

// Appender is the durable log a WALPublisher writes to.
type Appender interface {
	Append(data []byte) error
}

// WALPublisher journals every event before acknowledging it.
type WALPublisher struct {
	log Appender
}

// NewWALPublisher constructs a publisher over the append-only log.
func NewWALPublisher(log Appender) *WALPublisher {
	return &WALPublisher{log: log}
}

// Publish appends the marshaled event to the log.
func (p *WALPublisher) Publish(_ context.Context, ev Event) error {
	data, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	return p.log.Append(data)
}
