package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// StreamSink writes envelopes as JSON lines.
type StreamSink struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewStreamSink creates a StreamSink writing to w. Close closes w when it is
// an io.Closer.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w, enc: json.NewEncoder(w)}
}

// Send implements Sink.
func (s *StreamSink) Send(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(env); err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *StreamSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// StreamSource reads JSON lines written by a StreamSink.
type StreamSource struct {
	r    *bufio.Reader
	line int
}

// NewStreamSource creates a StreamSource reading from r.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: bufio.NewReader(r)}
}

// Receive implements Source. Blank lines are skipped. A line that is not a
// valid envelope yields an error wrapping ErrMalformedEnvelope.
func (s *StreamSource) Receive(ctx context.Context) (Envelope, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Envelope{}, err
		}

		raw, err := s.r.ReadBytes('\n')
		if len(bytes.TrimSpace(raw)) == 0 {
			if err != nil {
				return Envelope{}, readErr(err)
			}
			continue
		}
		s.line++

		var env Envelope
		if decodeErr := json.Unmarshal(raw, &env); decodeErr != nil {
			return Envelope{}, fmt.Errorf("line %d: %w: %w", s.line, ErrMalformedEnvelope, decodeErr)
		}
		return env, nil
	}
}

func readErr(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("failed to read envelope: %w", err)
}
