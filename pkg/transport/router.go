package transport

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ethpandaops/allure-runtime/pkg/runtime"
	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Stats counts what a Router did with the envelopes it received.
type Stats struct {
	Messages   int64
	Records    int64
	Duplicates int64
	Dropped    int64
}

// Router applies envelopes from any number of sources on the main process:
// runtime messages go to the Runtime and records to the Writer.
type Router struct {
	log     logrus.FieldLogger
	runtime *runtime.Runtime
	writer  writer.Writer

	mu   sync.Mutex
	seen map[string]*seqWindow

	messages   atomic.Int64
	records    atomic.Int64
	duplicates atomic.Int64
	dropped    atomic.Int64
}

// NewRouter creates a Router. Either rt or w may be nil, in which case the
// corresponding envelopes are dropped.
func NewRouter(log logrus.FieldLogger, rt *runtime.Runtime, w writer.Writer) *Router {
	return &Router{
		log:     log.WithField("component", "transport_router"),
		runtime: rt,
		writer:  w,
		seen:    make(map[string]*seqWindow),
	}
}

// Run drains every source concurrently, each in order, until all of them
// report io.EOF or ctx is done. Malformed envelopes and failures to apply
// one are logged and dropped. Run returns the first source read error.
func (r *Router) Run(ctx context.Context, sources ...Source) error {
	g, gCtx := errgroup.WithContext(ctx)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			return r.drain(gCtx, r.log.WithField("source", i), src)
		})
	}

	return g.Wait()
}

func (r *Router) drain(ctx context.Context, log logrus.FieldLogger, src Source) error {
	for {
		env, err := src.Receive(ctx)
		switch {
		case errors.Is(err, io.EOF):
			log.Debug("Source drained")
			return nil
		case errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, ErrMalformedEnvelope):
			r.dropped.Add(1)
			log.WithError(err).Warn("Dropping malformed envelope")
			continue
		case err != nil:
			return err
		}

		r.Handle(env)
	}
}

// Handle applies a single envelope.
func (r *Router) Handle(env Envelope) {
	log := r.log.WithFields(logrus.Fields{"worker": env.Worker, "instance": env.Instance, "seq": env.Seq, "kind": env.Kind})

	if r.duplicate(env) {
		r.duplicates.Add(1)
		log.Debug("Dropping duplicate envelope")
		return
	}

	switch env.Kind {
	case KindMessages:
		if r.runtime == nil {
			r.dropped.Add(1)
			log.Warn("No runtime to apply messages to")
			return
		}
		if err := r.runtime.ApplyRuntimeMessages(env.Target, env.Messages); err != nil {
			r.dropped.Add(1)
			log.WithError(err).WithField("target", env.Target).Warn("Failed to apply runtime messages")
			return
		}
		r.messages.Add(int64(len(env.Messages)))

	case KindRecord:
		if r.writer == nil || env.Record == nil {
			r.dropped.Add(1)
			log.Warn("Dropping record envelope")
			return
		}
		if err := writer.Deliver(r.writer, *env.Record); err != nil {
			r.dropped.Add(1)
			log.WithError(err).Warn("Failed to deliver record")
			return
		}
		r.records.Add(1)

	default:
		r.dropped.Add(1)
		log.Warn("Dropping envelope of unknown kind")
	}
}

func (r *Router) duplicate(env Envelope) bool {
	if env.Worker == "" || env.Seq == 0 {
		return false
	}

	key := env.Worker + "/" + env.Instance

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.seen[key]
	if !ok {
		w = &seqWindow{above: make(map[uint64]struct{})}
		r.seen[key] = w
	}
	return !w.add(env.Seq)
}

// seqWindow remembers the sequence numbers seen from one sender: every
// number up to low, plus the ones above it that arrived early.
type seqWindow struct {
	low   uint64
	above map[uint64]struct{}
}

// add records seq and reports whether it was new.
func (w *seqWindow) add(seq uint64) bool {
	if seq <= w.low {
		return false
	}
	if _, ok := w.above[seq]; ok {
		return false
	}

	w.above[seq] = struct{}{}
	for {
		if _, ok := w.above[w.low+1]; !ok {
			break
		}
		delete(w.above, w.low+1)
		w.low++
	}
	return true
}

// Stats returns the counters collected so far.
func (r *Router) Stats() Stats {
	return Stats{
		Messages:   r.messages.Load(),
		Records:    r.records.Load(),
		Duplicates: r.duplicates.Load(),
		Dropped:    r.dropped.Load(),
	}
}
