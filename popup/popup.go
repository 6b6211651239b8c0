// Package popup builds the model behind the ephemeral summary view: a
// connected/not-connected credential indicator and the most recent
// capture summaries, fetched through the relay with a hard time bound.
package popup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/marginote/marginote/credstore"
	"github.com/marginote/marginote/envelope"
)

// Config tunes one popup view.
type Config struct {
	// RecentLimit caps the recent-captures listing.
	RecentLimit int `yaml:"recent_limit"`
	// FetchTimeout bounds the relay fetch. The view renders an empty
	// state past it instead of waiting.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

func (c *Config) applyDefaults() {
	if c.RecentLimit <= 0 {
		c.RecentLimit = 10
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 5 * time.Second
	}
}

// Model is everything one popup opening renders. Notice carries the
// empty-state text; it is empty exactly when Cards has entries.
type Model struct {
	Connected bool
	Cards     []envelope.CardSummary
	Notice    string
}

// View reads credential presence from the store and recent captures over
// the relay channel.
type View struct {
	ch     envelope.Channel
	creds  credstore.Store
	cfg    Config
	logger *slog.Logger
}

// Option configures a View.
type Option func(*View)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *View) { v.logger = l }
}

// New creates a popup View.
func New(ch envelope.Channel, creds credstore.Store, cfg Config, opts ...Option) *View {
	cfg.applyDefaults()
	v := &View{
		ch:     ch,
		creds:  creds,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Open assembles the popup model. It never fails: every degraded path
// (timeout, transport failure, zero captures) collapses into an
// empty-state Notice, distinguished only by its text.
func (v *View) Open(ctx context.Context) Model {
	var m Model

	key, err := v.creds.Get(ctx)
	if err != nil {
		v.logger.Warn("popup: credential read failed", "error", err)
	}
	m.Connected = key != ""

	fetchCtx, cancel := context.WithTimeout(ctx, v.cfg.FetchTimeout)
	defer cancel()

	resp, err := v.ch.Call(fetchCtx, envelope.RecentRequest{Limit: v.cfg.RecentLimit})
	// The relay reports its own failures inside the response, so a
	// deadline that fires mid-call arrives as a failure response, not as
	// a channel error. The fetch context is the authoritative signal.
	switch {
	case err == nil && resp.Success:
		var res envelope.RecentResult
		if derr := resp.DecodeData(&res); derr != nil {
			v.logger.Warn("popup: recent decode failed", "error", derr)
			m.Notice = "Couldn't load recent captures."
			break
		}
		if len(res.Cards) == 0 {
			m.Notice = "No captures yet."
			break
		}
		m.Cards = res.Cards
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(fetchCtx.Err(), context.DeadlineExceeded):
		m.Notice = "Timed out loading recent captures."
	case err != nil:
		v.logger.Warn("popup: recent fetch failed", "error", err)
		m.Notice = "Couldn't load recent captures."
	default:
		m.Notice = "Couldn't load recent captures."
	}

	return m
}

// Render writes the model as plain text, one line per capture.
func (m Model) Render(w io.Writer) error {
	status := "Not connected"
	if m.Connected {
		status = "Connected"
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", status); err != nil {
		return err
	}

	if m.Notice != "" {
		_, err := fmt.Fprintln(w, m.Notice)
		return err
	}
	for _, c := range m.Cards {
		if _, err := fmt.Fprintf(w, "%s  %s\n", c.Title, c.SourceURL); err != nil {
			return err
		}
	}
	return nil
}
