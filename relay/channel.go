package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/marginote/marginote/envelope"
)

// Loopback is an in-process envelope.Channel bound to a Relay instance.
// It models the platform's recyclable background context: the host may
// Detach the relay at any moment and Attach a fresh one later. A call
// landing in the gap fails with envelope.ErrContextLost, exactly what a
// sender sees when the real background context is torn down mid-flight.
type Loopback struct {
	relay atomic.Pointer[Relay]
}

// NewLoopback creates a channel bound to r. A nil r starts detached.
func NewLoopback(r *Relay) *Loopback {
	l := &Loopback{}
	if r != nil {
		l.relay.Store(r)
	}
	return l
}

// Attach binds a (re)spawned relay to the channel.
func (l *Loopback) Attach(r *Relay) {
	l.relay.Store(r)
}

// Detach unbinds the current relay, simulating a context teardown.
func (l *Loopback) Detach() {
	l.relay.Store(nil)
}

// Call delivers one request and returns its single response. The error
// return is reserved for channel-level failures (no relay attached);
// application failures arrive inside the response. Requests cross in
// framed form, the same {action, data} shape any out-of-process channel
// would carry, so the wire contract is exercised on every call.
func (l *Loopback) Call(ctx context.Context, req envelope.Request) (envelope.Response, error) {
	r := l.relay.Load()
	if r == nil {
		return envelope.Response{}, &envelope.ErrContextLost{}
	}
	frame, err := envelope.Encode(req)
	if err != nil {
		return envelope.Response{}, fmt.Errorf("relay: frame request: %w", err)
	}
	var resp envelope.Response
	if err := json.Unmarshal(r.HandleFrame(ctx, frame), &resp); err != nil {
		return envelope.Response{}, fmt.Errorf("relay: parse response frame: %w", err)
	}
	return resp, nil
}
