package testruntime

import (
	"context"

	"github.com/ethpandaops/allure-runtime/pkg/message"
	"github.com/ethpandaops/allure-runtime/pkg/runtime"
	"github.com/ethpandaops/allure-runtime/pkg/transport"
)

// Current resolves the test or fixture running in ctx.
type Current func(ctx context.Context) (string, bool)

// Fixed returns a Current that always resolves to id.
func Fixed(id string) Current {
	return func(context.Context) (string, bool) {
		return id, id != ""
	}
}

// InProcess returns a Sender applying messages directly to rt.
func InProcess(rt *runtime.Runtime, current Current) Sender {
	return func(ctx context.Context, msgs ...message.Message) error {
		if len(msgs) == 0 {
			return nil
		}
		id, ok := current(ctx)
		if !ok {
			return ErrNoCurrentTest
		}
		return rt.ApplyRuntimeMessages(id, msgs)
	}
}

// Remote returns a Sender shipping messages through pub to the process that
// owns the runtime.
func Remote(pub *transport.Publisher, current Current) Sender {
	return func(ctx context.Context, msgs ...message.Message) error {
		if len(msgs) == 0 {
			return nil
		}
		id, ok := current(ctx)
		if !ok {
			return ErrNoCurrentTest
		}
		return pub.Messages(ctx, id, msgs...)
	}
}
