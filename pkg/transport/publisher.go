package transport

import (
	"context"
	"sync"

	"github.com/ethpandaops/allure-runtime/pkg/identity"
	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
)

// Publisher stamps envelopes with a worker name, a per-publisher instance id
// and an increasing sequence number before handing them to a Sink. Sequence
// numbers reach the sink in the order they were assigned.
type Publisher struct {
	sink     Sink
	worker   string
	instance string

	mu  sync.Mutex
	seq uint64
}

// NewPublisher creates a Publisher for worker.
func NewPublisher(sink Sink, worker string) *Publisher {
	return &Publisher{sink: sink, worker: worker, instance: identity.NewUUID()}
}

// Worker returns the worker name stamped on envelopes.
func (p *Publisher) Worker() string {
	return p.worker
}

// Instance returns the id that tells this publisher apart from others
// sharing its worker name.
func (p *Publisher) Instance() string {
	return p.instance
}

func (p *Publisher) send(ctx context.Context, env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	env.Worker = p.worker
	env.Instance = p.instance
	env.Seq = p.seq

	return p.sink.Send(ctx, env)
}

// Messages sends runtime messages addressed to target.
func (p *Publisher) Messages(ctx context.Context, target string, msgs ...message.Message) error {
	return p.send(ctx, Envelope{
		Kind:     KindMessages,
		Target:   target,
		Messages: msgs,
	})
}

// Record sends a finished record.
func (p *Publisher) Record(ctx context.Context, rec writer.Record) error {
	return p.send(ctx, Envelope{
		Kind:   KindRecord,
		Record: &rec,
	})
}

// Publish implements writer.RecordSink so a writer.MessageWriter can ship
// records through the transport.
func (p *Publisher) Publish(rec writer.Record) error {
	return p.Record(context.Background(), rec)
}

// Close closes the underlying sink.
func (p *Publisher) Close() error {
	return p.sink.Close()
}

var _ writer.RecordSink = (*Publisher)(nil)
