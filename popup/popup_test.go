package popup

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marginote/marginote/apiclient"
	"github.com/marginote/marginote/credstore"
	"github.com/marginote/marginote/envelope"
	"github.com/marginote/marginote/relay"
)

type channelFunc func(ctx context.Context, req envelope.Request) (envelope.Response, error)

func (f channelFunc) Call(ctx context.Context, req envelope.Request) (envelope.Response, error) {
	return f(ctx, req)
}

func storeWithKey(t *testing.T, key string) credstore.Store {
	t.Helper()
	s := credstore.NewMemory()
	if key != "" {
		if err := s.Set(context.Background(), key); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestOpenConnectedWithCards(t *testing.T) {
	ch := channelFunc(func(ctx context.Context, req envelope.Request) (envelope.Response, error) {
		rec, ok := req.(envelope.RecentRequest)
		if !ok {
			t.Fatalf("request was %T", req)
		}
		if rec.Limit != 10 {
			t.Fatalf("limit = %d", rec.Limit)
		}
		return envelope.OK(envelope.RecentResult{Cards: []envelope.CardSummary{
			{ID: "card_1", Title: "First", SourceURL: "https://example.com/a"},
			{ID: "card_2", Title: "Second", SourceURL: "https://example.com/b"},
		}}), nil
	})

	v := New(ch, storeWithKey(t, "mk_secret"), Config{})
	m := v.Open(context.Background())

	if !m.Connected {
		t.Error("expected connected indicator")
	}
	if m.Notice != "" {
		t.Errorf("notice = %q, want none", m.Notice)
	}
	if len(m.Cards) != 2 || m.Cards[0].Title != "First" {
		t.Errorf("cards = %+v", m.Cards)
	}
}

func TestOpenNotConnected(t *testing.T) {
	ch := channelFunc(func(ctx context.Context, req envelope.Request) (envelope.Response, error) {
		return envelope.OK(envelope.RecentResult{}), nil
	})

	v := New(ch, storeWithKey(t, ""), Config{})
	m := v.Open(context.Background())

	if m.Connected {
		t.Error("expected not-connected indicator")
	}
	if m.Notice != "No captures yet." {
		t.Errorf("notice = %q", m.Notice)
	}
}

func TestOpenTimesOut(t *testing.T) {
	ch := channelFunc(func(ctx context.Context, req envelope.Request) (envelope.Response, error) {
		<-ctx.Done()
		return envelope.Response{}, ctx.Err()
	})

	v := New(ch, storeWithKey(t, "mk_secret"), Config{FetchTimeout: 20 * time.Millisecond})

	start := time.Now()
	m := v.Open(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("open took %v, timeout did not bound the fetch", elapsed)
	}

	if !strings.Contains(m.Notice, "Timed out") {
		t.Errorf("notice = %q, want timeout wording", m.Notice)
	}
	if len(m.Cards) != 0 {
		t.Errorf("cards = %+v", m.Cards)
	}
}

// A deadline that fires while the relay is mid-call comes back as a
// failure response, not a channel error. The view must still report it
// as a timeout.
func TestOpenTimesOutThroughRelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done() // park until the fetch deadline cancels the request
	}))
	t.Cleanup(srv.Close)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds := storeWithKey(t, "mk_secret")
	ch := relay.NewLoopback(relay.New(creds, apiclient.New(srv.URL), relay.WithLogger(quiet)))

	v := New(ch, creds, Config{FetchTimeout: 50 * time.Millisecond}, WithLogger(quiet))
	m := v.Open(context.Background())

	if m.Notice != "Timed out loading recent captures." {
		t.Errorf("notice = %q, want the timeout wording", m.Notice)
	}
	if len(m.Cards) != 0 {
		t.Errorf("cards = %+v", m.Cards)
	}
}

func TestOpenTransportFailure(t *testing.T) {
	ch := channelFunc(func(ctx context.Context, req envelope.Request) (envelope.Response, error) {
		return envelope.Response{}, &envelope.ErrContextLost{}
	})

	v := New(ch, storeWithKey(t, "mk_secret"), Config{})
	m := v.Open(context.Background())

	if m.Notice != "Couldn't load recent captures." {
		t.Errorf("notice = %q", m.Notice)
	}
}

func TestRender(t *testing.T) {
	m := Model{Connected: true, Cards: []envelope.CardSummary{
		{Title: "First", SourceURL: "https://example.com/a"},
	}}

	var sb strings.Builder
	if err := m.Render(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.HasPrefix(out, "Connected") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "First  https://example.com/a") {
		t.Errorf("output = %q", out)
	}
}
