// Package e2e wires the full capture pipeline together: a real plugin
// API server on httptest, the API client, the relay, and the loopback
// channel the page-side surfaces talk over.
package e2e

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marginote/marginote/apiclient"
	"github.com/marginote/marginote/apiserver"
	"github.com/marginote/marginote/apiserver/store"
	"github.com/marginote/marginote/credstore"
	"github.com/marginote/marginote/dbopen"
	"github.com/marginote/marginote/envelope"
	"github.com/marginote/marginote/popup"
	"github.com/marginote/marginote/relay"

	_ "modernc.org/sqlite"
)

type pipeline struct {
	creds *credstore.Memory
	rel   *relay.Relay
	loop  *relay.Loopback
}

// newPipeline stands up the whole chain with a valid key already stored.
func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := store.New(db)

	plain, hash, err := apiserver.MintKey()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertKey(context.Background(), "e2e", hash); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(apiserver.New(st).Router())
	t.Cleanup(srv.Close)

	creds := credstore.NewMemory()
	if err := creds.Set(context.Background(), plain); err != nil {
		t.Fatal(err)
	}

	rel := relay.New(creds, apiclient.New(srv.URL))
	return &pipeline{
		creds: creds,
		rel:   rel,
		loop:  relay.NewLoopback(rel),
	}
}

func TestSubmitEndToEnd(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	resp, err := p.loop.Call(ctx, envelope.SubmitRequest{Record: envelope.CaptureRecord{
		Title:     "Test Page",
		Content:   "hello world",
		SourceURL: "https://example.com/test",
		Tags:      []string{},
		Kind:      envelope.RecordCapture,
	}})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatalf("response = %+v", resp)
	}

	var sub envelope.SubmitResult
	if err := resp.DecodeData(&sub); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sub.CardID, "card_") {
		t.Errorf("card_id = %q", sub.CardID)
	}

	resp, err = p.loop.Call(ctx, envelope.RecentRequest{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	var recent envelope.RecentResult
	if err := resp.DecodeData(&recent); err != nil {
		t.Fatal(err)
	}
	if len(recent.Cards) != 1 || recent.Cards[0].ID != sub.CardID {
		t.Errorf("recent = %+v", recent.Cards)
	}
}

func TestSyncThenGetAnnotations(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	pageURL := "https://example.com/post"

	a := envelope.Annotation{
		Text:  "quoted passage",
		XPath: "/html/body/article/p[3]",
		Color: "yellow",
		Kind:  envelope.AnnotationHighlight,
	}

	resp, err := p.loop.Call(ctx, envelope.SyncAnnotationsRequest{
		URL:         pageURL,
		Annotations: []envelope.Annotation{a},
	})
	if err != nil {
		t.Fatal(err)
	}
	var sync envelope.SyncResult
	if err := resp.DecodeData(&sync); err != nil {
		t.Fatal(err)
	}
	if sync.Count != 1 || len(sync.AnnotationIDs) != 1 {
		t.Fatalf("sync = %+v", sync)
	}

	resp, err = p.loop.Call(ctx, envelope.GetAnnotationsRequest{URL: pageURL})
	if err != nil {
		t.Fatal(err)
	}
	var got envelope.AnnotationsResult
	if err := resp.DecodeData(&got); err != nil {
		t.Fatal(err)
	}
	if got.Count != 1 {
		t.Fatalf("annotations = %+v", got)
	}
	stored := got.Annotations[0]
	if stored.Text != a.Text || stored.XPath != a.XPath || stored.Color != a.Color {
		t.Errorf("stored = %+v, want fields of %+v", stored, a)
	}
	if stored.ID != sync.AnnotationIDs[0] {
		t.Errorf("id = %q, want %q", stored.ID, sync.AnnotationIDs[0])
	}
}

func TestMissingCredentialEndToEnd(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	if err := p.creds.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	resp, err := p.loop.Call(ctx, envelope.SubmitRequest{Record: envelope.CaptureRecord{
		Content:   "orphan",
		SourceURL: "https://example.com",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Success || !strings.Contains(resp.Error, "no API key configured") {
		t.Fatalf("response = %+v", resp)
	}
}

func TestInvalidCredentialEndToEnd(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	if err := p.creds.Set(ctx, "mk_not_a_real_key"); err != nil {
		t.Fatal(err)
	}

	resp, err := p.loop.Call(ctx, envelope.SubmitRequest{Record: envelope.CaptureRecord{
		Content:   "rejected",
		SourceURL: "https://example.com",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error != "API error: 401" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestDetachedChannelSignalsContextLost(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	p.loop.Detach()
	_, err := p.loop.Call(ctx, envelope.RecentRequest{})
	if !envelope.IsContextLost(err) {
		t.Fatalf("err = %v, want context lost", err)
	}

	p.loop.Attach(p.rel)
	resp, err := p.loop.Call(ctx, envelope.RecentRequest{})
	if err != nil || !resp.Success {
		t.Fatalf("after reattach: resp = %+v, err = %v", resp, err)
	}
}

func TestPopupEndToEnd(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	resp, err := p.loop.Call(ctx, envelope.SubmitRequest{Record: envelope.CaptureRecord{
		Title:     "Saved capture",
		Content:   "body",
		SourceURL: "https://example.com/saved",
	}})
	if err != nil || !resp.Success {
		t.Fatalf("submit: resp = %+v, err = %v", resp, err)
	}

	m := popup.New(p.loop, p.creds, popup.Config{}).Open(ctx)
	if !m.Connected {
		t.Error("expected connected indicator")
	}
	if m.Notice != "" {
		t.Errorf("notice = %q", m.Notice)
	}
	if len(m.Cards) != 1 || m.Cards[0].Title != "Saved capture" {
		t.Errorf("cards = %+v", m.Cards)
	}
}
