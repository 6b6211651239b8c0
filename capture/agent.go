// Package capture implements the page-side agent: it watches text
// selections on a host page, drives the floating toolbar state machine,
// and turns save actions into relay requests with one-retry semantics
// and a visible outcome for every attempt.
//
// The agent's decision logic is single-threaded and event-driven: page
// events (selections, clears, toolbar clicks) and send completions all
// land in one loop, mirroring the cooperative scheduling of the page
// context it stands in for. Only the send itself runs concurrently, so a
// slow network never blocks selection handling.
package capture

import (
	"context"
	"log/slog"
	"strings"

	"github.com/marginote/marginote/attempt"
	"github.com/marginote/marginote/envelope"
	"github.com/marginote/marginote/snippet"
)

// Surface is the page-side presentation the agent drives: show/hide the
// toolbar, flash a transient notification. Implementations must tolerate
// being called from the agent's loop goroutine.
type Surface interface {
	ShowToolbar(ctx context.Context, pos Point) error
	HideToolbar(ctx context.Context) error
	Notify(ctx context.Context, message string, ok bool) error
}

type saveMode int

const (
	savePlain saveMode = iota
	saveTags
	saveNote
)

type eventKind int

const (
	evSelection eventKind = iota
	evClear
	evSave
	evDone
)

type event struct {
	kind  eventKind
	snap  *Snapshot
	mode  saveMode
	input string
	ok    bool
	note  string // notification text for evDone
}

// Agent owns the toolbar machine for one page.
type Agent struct {
	ch      envelope.Channel
	surface Surface
	conv    *snippet.Converter
	cfg     Config
	toolbar *Toolbar
	deb     *debouncer
	events  chan event
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New creates an Agent over a relay channel and a page surface.
func New(ch envelope.Channel, surface Surface, cfg Config, opts ...Option) *Agent {
	cfg.applyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		ch:      ch,
		surface: surface,
		conv:    snippet.NewConverter(),
		cfg:     cfg,
		toolbar: NewToolbar(cfg.ToolbarSize, cfg.ToolbarMargin),
		events:  make(chan event, 64),
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	a.deb = newDebouncer(cfg.DebounceWindow, a.onSettled)
	return a
}

// Start launches the event loop.
func (a *Agent) Start() {
	go a.loop()
}

// Stop tears the agent down. In-flight sends are orphaned, matching a
// page being closed mid-save.
func (a *Agent) Stop() {
	a.cancel()
	<-a.done
}

// ObserveSelection feeds a raw (not yet settled) selection.
func (a *Agent) ObserveSelection(snap *Snapshot) {
	a.post(event{kind: evSelection, snap: snap})
}

// ClearSelection feeds a selection-clear.
func (a *Agent) ClearSelection() {
	a.post(event{kind: evClear})
}

// SaveSelection saves the current selection as-is: no tags, a plain
// capture.
func (a *Agent) SaveSelection() {
	a.post(event{kind: evSave, mode: savePlain})
}

// SaveWithTags saves the current selection with a comma-separated tag
// input. Empty input aborts the action and leaves the toolbar open.
func (a *Agent) SaveWithTags(tagInput string) {
	a.post(event{kind: evSave, mode: saveTags, input: tagInput})
}

// SaveWithNote saves the current selection with an attached note. Empty
// input aborts the action and leaves the toolbar open.
func (a *Agent) SaveWithNote(note string) {
	a.post(event{kind: evSave, mode: saveNote, input: note})
}

func (a *Agent) post(ev event) {
	select {
	case a.events <- ev:
	case <-a.ctx.Done():
	}
}

func (a *Agent) loop() {
	defer close(a.done)
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev := <-a.events:
			a.handle(ev)
		case <-a.deb.timerC():
			a.deb.flush()
		}
	}
}

func (a *Agent) handle(ev event) {
	switch ev.kind {
	case evSelection:
		if ev.snap.Empty() {
			a.handleClear()
			return
		}
		a.deb.observe(ev.snap)

	case evClear:
		a.handleClear()

	case evSave:
		a.handleSave(ev)

	case evDone:
		if a.toolbar.Finish() {
			a.notify(ev.note, ev.ok)
		}
	}
}

func (a *Agent) handleClear() {
	a.deb.reset()
	if a.toolbar.Clear() {
		if err := a.surface.HideToolbar(a.ctx); err != nil {
			a.logger.Warn("hide toolbar failed", "error", err)
		}
	}
}

// onSettled runs when the debounce window expires: one Idle→Selected
// transition per settled selection.
func (a *Agent) onSettled(snap *Snapshot) {
	pos, ok := a.toolbar.Select(snap)
	if !ok {
		return
	}
	if err := a.surface.ShowToolbar(a.ctx, pos); err != nil {
		a.logger.Warn("show toolbar failed", "error", err)
	}
}

func (a *Agent) handleSave(ev event) {
	var tags []string
	var note string

	switch ev.mode {
	case saveTags:
		tags = ParseTags(ev.input)
		if len(tags) == 0 {
			// User abandoned the prompt: abort silently, stay Selected.
			return
		}
	case saveNote:
		note = strings.TrimSpace(ev.input)
		if note == "" {
			return
		}
	}

	snap, ok := a.toolbar.BeginSave()
	if !ok {
		return
	}
	if err := a.surface.HideToolbar(a.ctx); err != nil {
		a.logger.Warn("hide toolbar failed", "error", err)
	}

	record := buildRecord(a.conv, snap, tags, note)
	go a.send(record)
}

// send performs exactly one relay request per save action, retrying once
// after a fixed backoff when the relay context was recycled mid-flight.
// Every outcome comes back to the loop as an evDone so the toolbar
// machine and the notification stay in lockstep.
func (a *Agent) send(record envelope.CaptureRecord) {
	resp, err := attempt.Value(a.ctx, attempt.Policy{
		Attempts:  a.cfg.SendAttempts,
		Backoff:   a.cfg.RetryBackoff,
		Retryable: envelope.IsContextLost,
		Logger:    a.logger,
	}, func(ctx context.Context) (envelope.Response, error) {
		return a.ch.Call(ctx, envelope.SubmitRequest{Record: record})
	})

	note, ok := a.outcome(resp, err)
	a.post(event{kind: evDone, ok: ok, note: note})
}

// outcome maps a send result to the user-visible notification. The three
// failure classes stay distinguishable: configuration, transport, and
// remote rejection.
func (a *Agent) outcome(resp envelope.Response, err error) (string, bool) {
	if err != nil {
		return "Save failed: " + err.Error(), false
	}
	if !resp.Success {
		if strings.Contains(resp.Error, "no API key configured") {
			return "No API key configured. Open settings to connect your blog.", false
		}
		return "Save failed: " + resp.Error, false
	}

	var res envelope.SubmitResult
	if derr := resp.DecodeData(&res); derr == nil && res.Message != "" {
		return "Saved: " + res.Message, true
	}
	return "Saved", true
}

func (a *Agent) notify(message string, ok bool) {
	if err := a.surface.Notify(a.ctx, message, ok); err != nil {
		a.logger.Warn("notify failed", "error", err)
	}
}

// SyncAnnotations pushes the page's annotation set through the relay,
// with the same one-retry policy as saves.
func (a *Agent) SyncAnnotations(ctx context.Context, pageURL string, annotations []envelope.Annotation) (*envelope.SyncResult, error) {
	resp, err := a.callRetry(ctx, envelope.SyncAnnotationsRequest{URL: pageURL, Annotations: annotations})
	if err != nil {
		return nil, err
	}
	var res envelope.SyncResult
	if err := resp.DecodeData(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Annotations fetches the stored annotations for the page.
func (a *Agent) Annotations(ctx context.Context, pageURL string) (*envelope.AnnotationsResult, error) {
	resp, err := a.callRetry(ctx, envelope.GetAnnotationsRequest{URL: pageURL})
	if err != nil {
		return nil, err
	}
	var res envelope.AnnotationsResult
	if err := resp.DecodeData(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *Agent) callRetry(ctx context.Context, req envelope.Request) (envelope.Response, error) {
	return attempt.Value(ctx, attempt.Policy{
		Attempts:  a.cfg.SendAttempts,
		Backoff:   a.cfg.RetryBackoff,
		Retryable: envelope.IsContextLost,
		Logger:    a.logger,
	}, func(ctx context.Context) (envelope.Response, error) {
		return a.ch.Call(ctx, req)
	})
}
