package capture

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/marginote/marginote/envelope"
)

//go:embed agent.js
var agentJS []byte

const bindingName = "__marginote_emit"

// PageAgent binds an Agent to a live rod page: the injected shim reports
// selection and toolbar events over a CDP binding, and the agent drives
// the shim back through Eval calls.
type PageAgent struct {
	Agent *Agent
	page  *rod.Page
	url   string

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// Attach injects the capture shim into page and starts an agent for it.
func Attach(ctx context.Context, page *rod.Page, ch envelope.Channel, cfg Config, opts ...Option) (*PageAgent, error) {
	cfg.applyDefaults()

	pageCtx, cancel := context.WithCancel(ctx)
	pa := &PageAgent{
		page:   page,
		ctx:    pageCtx,
		cancel: cancel,
		logger: slog.Default(),
	}

	surface := &rodSurface{page: page, notifyMs: cfg.NotifyDuration.Milliseconds()}
	pa.Agent = New(ch, surface, cfg, opts...)
	pa.logger = pa.Agent.logger

	if info, err := page.Info(); err == nil {
		pa.url = info.URL
	}

	// Binding first, so no shim event can fire into the void.
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		cancel()
		return nil, fmt.Errorf("capture: add binding: %w", err)
	}
	go pa.listenBinding()

	pa.Agent.Start()

	if _, err := page.Context(pageCtx).Eval(string(agentJS)); err != nil {
		pa.Agent.Stop()
		cancel()
		return nil, fmt.Errorf("capture: inject agent shim: %w", err)
	}

	return pa, nil
}

// URL returns the page URL seen at attach time.
func (pa *PageAgent) URL() string { return pa.url }

// Close stops the agent and detaches from the page.
func (pa *PageAgent) Close() {
	pa.cancel()
	pa.Agent.Stop()
}

// shimEvent is the payload the injected shim sends over the binding.
type shimEvent struct {
	Type     string `json:"type"`
	Mode     string `json:"mode"`
	Input    string `json:"input"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Rect     Rect   `json:"rect"`
	Viewport Size   `json:"viewport"`
}

func (pa *PageAgent) listenBinding() {
	pa.page.Context(pa.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		var ev shimEvent
		if err := json.Unmarshal([]byte(e.Payload), &ev); err != nil {
			pa.logger.Warn("capture: parse shim event", "error", err)
			return
		}

		switch ev.Type {
		case "selection":
			pa.Agent.ObserveSelection(&Snapshot{
				Text:      ev.Text,
				HTML:      ev.HTML,
				PageTitle: ev.Title,
				PageURL:   ev.URL,
				Rect:      ev.Rect,
				Viewport:  ev.Viewport,
			})
		case "clear":
			pa.Agent.ClearSelection()
		case "save":
			switch ev.Mode {
			case "tags":
				pa.Agent.SaveWithTags(ev.Input)
			case "note":
				pa.Agent.SaveWithNote(ev.Input)
			default:
				pa.Agent.SaveSelection()
			}
		default:
			pa.logger.Debug("capture: unknown shim event", "type", ev.Type)
		}
	})()
}

// rodSurface renders agent decisions through the injected shim.
type rodSurface struct {
	page     *rod.Page
	notifyMs int64
}

func (s *rodSurface) ShowToolbar(ctx context.Context, pos Point) error {
	_, err := s.page.Context(ctx).Eval(
		`(x, y) => window.__marginote.showToolbar(x, y)`, pos.X, pos.Y)
	return err
}

func (s *rodSurface) HideToolbar(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(`() => window.__marginote.hideToolbar()`)
	return err
}

func (s *rodSurface) Notify(ctx context.Context, message string, ok bool) error {
	_, err := s.page.Context(ctx).Eval(
		`(msg, ok, ms) => window.__marginote.notify(msg, ok, ms)`,
		message, ok, s.notifyMs)
	return err
}
