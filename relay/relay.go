// Package relay is the privileged broker between isolated contexts and
// the remote blog API. It is the only component holding network
// capability: capture agents and popup views hand it envelope requests
// and get envelope responses back, never an exception across the channel.
//
// The relay holds no durable state. Its host may tear it down and respawn
// it between any two requests, which is why senders treat one round-trip
// as unreliable and retry once on context loss (see the attempt package).
// Requests are handled independently and concurrently: there is no
// ordering between two in-flight calls and no idempotency key, so
// duplicate user actions produce duplicate remote records. That is a
// documented limitation of the protocol, not something the relay papers
// over.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/marginote/marginote/apiclient"
	"github.com/marginote/marginote/credstore"
	"github.com/marginote/marginote/envelope"
)

// Relay brokers envelope requests to the remote API.
type Relay struct {
	creds  credstore.Store
	api    *apiclient.Client
	logger *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// New creates a Relay over an injected credential store and API client.
func New(creds credstore.Store, api *apiclient.Client, opts ...Option) *Relay {
	r := &Relay{
		creds:  creds,
		api:    api,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handle processes one request and always produces a response: failures
// travel inside it. For every operation the credential is read first and
// a missing key fails fast without any network attempt.
func (r *Relay) Handle(ctx context.Context, req envelope.Request) envelope.Response {
	credential, err := r.creds.Get(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "credential read failed", "error", err)
		return envelope.Fail(fmt.Errorf("relay: read credential: %w", err))
	}
	if credential == "" {
		return envelope.Fail(&apiclient.ErrNoCredential{})
	}

	switch q := req.(type) {
	case envelope.SubmitRequest:
		res, err := r.api.Submit(ctx, q.Record, credential)
		if err != nil {
			return r.fail(ctx, q, err)
		}
		return envelope.OK(res)

	case envelope.SyncAnnotationsRequest:
		res, err := r.api.SyncAnnotations(ctx, q.URL, q.Annotations, credential)
		if err != nil {
			return r.fail(ctx, q, err)
		}
		return envelope.OK(res)

	case envelope.GetAnnotationsRequest:
		res, err := r.api.GetAnnotations(ctx, q.URL, credential)
		if err != nil {
			return r.fail(ctx, q, err)
		}
		return envelope.OK(res)

	case envelope.RecentRequest:
		res, err := r.api.Recent(ctx, q.Limit, credential)
		if err != nil {
			return r.fail(ctx, q, err)
		}
		return envelope.OK(res)

	default:
		// Unreachable while envelope.Request stays sealed.
		return envelope.Fail(&envelope.ErrUnknownAction{Actual: req.Action()})
	}
}

// HandleFrame is Handle for wire-framed requests. Malformed frames and
// unknown actions come back as failure responses, never as a broken
// channel, so the sender's handling stays uniform.
func (r *Relay) HandleFrame(ctx context.Context, frame []byte) []byte {
	req, err := envelope.Decode(frame)
	if err != nil {
		return mustMarshal(envelope.Fail(err))
	}
	return mustMarshal(r.Handle(ctx, req))
}

func (r *Relay) fail(ctx context.Context, req envelope.Request, err error) envelope.Response {
	r.logger.WarnContext(ctx, "relay call failed",
		"action", req.Action(),
		"error", err)
	return envelope.Fail(err)
}

func mustMarshal(resp envelope.Response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		// Response contains only bool and string fields; this cannot
		// fail without memory corruption.
		return []byte(`{"success":false,"error":"relay: marshal response"}`)
	}
	return out
}
