package middleware

import (
	"context"
	"sync"

	"github.com/xiongwc/abtree/core"
)

// Message is one delivered PubSub payload.
type Message struct {
	Topic   string
	Payload any
}

// PubSubHandler processes one delivered Message. Panics are recovered and
// dropped (isolated) the same way core.EventBus isolates a subscriber's
// failure from its siblings.
type PubSubHandler func(Message)

type pubsubSub struct {
	id      string
	handler PubSubHandler
}

// PubSub is spec §4.9's publish/subscribe channel: publish(topic, payload)
// delivers asynchronously to every current subscriber of that topic, and
// — unlike core.EventBus, which only orders handlers within one emit — a
// single subscriber's deliveries are kept in publish order across multiple
// Publish calls, because every enqueued message is drained by one
// background dispatch loop per PubSub instance. Grounded on
// core.EventBus's own dispatch discipline (self-grounded — same engine)
// and engine.CallbackManager's ordered-slice-per-key registry.
type PubSub struct {
	Base

	mu   sync.Mutex
	subs map[string][]pubsubSub

	queue chan Message
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewPubSub constructs a PubSub middleware named name. queueSize bounds how
// many in-flight publishes can be buffered before Publish falls back to a
// detached goroutine (see Publish) to avoid blocking the caller; 0 selects a
// reasonable default.
func NewPubSub(name string, queueSize int) *PubSub {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &PubSub{
		Base:  NewBase(name),
		subs:  make(map[string][]pubsubSub),
		queue: make(chan Message, queueSize),
	}
}

// Start launches the background dispatch loop.
func (p *PubSub) Start(ctx context.Context) error {
	p.done = make(chan struct{})
	p.wg.Add(1)
	go p.loop()
	return nil
}

// Stop halts the dispatch loop, discarding any messages still queued.
func (p *PubSub) Stop(ctx context.Context) error {
	if p.done != nil {
		close(p.done)
	}
	p.wg.Wait()
	return nil
}

func (p *PubSub) loop() {
	defer p.wg.Done()
	for {
		select {
		case msg := <-p.queue:
			p.deliver(msg)
		case <-p.done:
			return
		}
	}
}

func (p *PubSub) deliver(msg Message) {
	p.mu.Lock()
	subs := make([]pubsubSub, len(p.subs[msg.Topic]))
	copy(subs, p.subs[msg.Topic])
	p.mu.Unlock()

	for _, s := range subs {
		func(h PubSubHandler) {
			defer func() { recover() }()
			h(msg)
		}(s.handler)
	}
}

// Subscribe registers handler for topic, returning a subscription ID usable
// with Unsubscribe. Subscribers for the same topic are delivered to in
// registration order for any single message.
func (p *PubSub) Subscribe(topic string, handler PubSubHandler) string {
	id := core.NewID()
	p.mu.Lock()
	p.subs[topic] = append(p.subs[topic], pubsubSub{id: id, handler: handler})
	p.mu.Unlock()
	return id
}

// Unsubscribe removes a previously registered handler.
func (p *PubSub) Unsubscribe(topic, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.subs[topic]
	for i, s := range subs {
		if s.id == id {
			p.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish asynchronously delivers payload to every current subscriber of
// topic, in publish order per subscriber. It never blocks the caller: when
// the internal queue is full, the enqueue itself is handed to a detached
// goroutine rather than blocking (at the cost of order relative to a
// concurrently-queued Publish call racing for the same queue slot — a
// documented caveat of bounding the queue at all).
func (p *PubSub) Publish(topic string, payload any) {
	msg := Message{Topic: topic, Payload: payload}
	select {
	case p.queue <- msg:
	default:
		go func() { p.queue <- msg }()
	}
}
