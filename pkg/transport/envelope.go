// Package transport carries runtime messages and finished records from
// worker processes to the process that owns the reporter runtime.
//
// Delivery is at least once and ordered per sender: every envelope carries
// the sender's worker name, its publisher instance and a sequence number,
// and the Router drops envelopes it has already seen.
package transport

import (
	"context"
	"errors"

	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
)

// Kind tags the payload of an Envelope.
type Kind string

const (
	// KindMessages carries runtime messages for a live test or fixture.
	KindMessages Kind = "messages"
	// KindRecord carries a finished record.
	KindRecord Kind = "record"
)

// ErrMalformedEnvelope is returned by sources for input that does not
// decode into an Envelope. The source stays usable.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is the unit of transport.
type Envelope struct {
	Kind     Kind              `json:"kind"`
	Worker   string            `json:"worker,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Seq      uint64            `json:"seq"`
	Target   string            `json:"target,omitempty"`
	Messages []message.Message `json:"messages,omitempty"`
	Record   *writer.Record    `json:"record,omitempty"`
}

// Sink sends envelopes.
type Sink interface {
	Send(ctx context.Context, env Envelope) error
	Close() error
}

// Source receives envelopes in the order they were sent. Receive returns
// io.EOF once no more envelopes will arrive.
type Source interface {
	Receive(ctx context.Context) (Envelope, error)
}
