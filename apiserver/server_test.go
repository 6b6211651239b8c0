package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marginote/marginote/apiserver/store"
	"github.com/marginote/marginote/dbopen"
	"github.com/marginote/marginote/envelope"

	_ "modernc.org/sqlite"
)

func testServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := store.New(db)

	plain, hash, err := MintKey()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertKey(context.Background(), "test", hash); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(New(st).Router())
	t.Cleanup(srv.Close)
	return srv, plain
}

func doJSON(t *testing.T, method, url, key string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	return resp, decoded
}

func TestSubmitRoundTrip(t *testing.T) {
	srv, key := testServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/plugin/submit", key, envelope.CaptureRecord{
		Title:     "Test Page",
		Content:   "hello world",
		SourceURL: "https://example.com/test",
		Tags:      []string{},
		Kind:      envelope.RecordCapture,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("body = %v", body)
	}
	if id, _ := body["card_id"].(string); id == "" {
		t.Fatalf("card_id missing: %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/plugin/recent?limit=5", key, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recent status = %d", resp.StatusCode)
	}
	cards, _ := body["cards"].([]any)
	if len(cards) != 1 {
		t.Fatalf("cards = %v", body["cards"])
	}
	card := cards[0].(map[string]any)
	if card["title"] != "Test Page" || card["source_url"] != "https://example.com/test" {
		t.Errorf("card = %v", card)
	}
}

func TestSubmitValidation(t *testing.T) {
	srv, key := testServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/plugin/submit", key, envelope.CaptureRecord{
		Title:     "No content",
		SourceURL: "https://example.com",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["success"] != false {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := testServer(t)

	cases := []struct {
		name string
		key  string
	}{
		{"missing key", ""},
		{"wrong key", "mk_deadbeef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/plugin/recent", tc.key, nil)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", resp.StatusCode)
			}
			if body["success"] != false {
				t.Fatalf("body = %v", body)
			}
		})
	}
}

func TestHealthIsOpen(t *testing.T) {
	srv, _ := testServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestSyncThenGetAnnotations(t *testing.T) {
	srv, key := testServer(t)
	pageURL := "https://example.com/post"

	anns := []envelope.Annotation{
		{Text: "quoted passage", XPath: "/html/body/p[3]", Color: "yellow"},
		{Text: "another", XPath: "/html/body/p[7]", Color: "green", Note: "verify", Kind: envelope.AnnotationNote},
	}
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/plugin/sync-annotations", key, map[string]any{
		"url":         pageURL,
		"annotations": anns,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync status = %d, body = %v", resp.StatusCode, body)
	}
	if count, _ := body["count"].(float64); int(count) != 2 {
		t.Fatalf("count = %v", body["count"])
	}
	ids, _ := body["annotation_ids"].([]any)
	if len(ids) != 2 {
		t.Fatalf("annotation_ids = %v", body["annotation_ids"])
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/plugin/annotations?url="+pageURL, key, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	got, _ := body["annotations"].([]any)
	if len(got) != 2 {
		t.Fatalf("annotations = %v", body["annotations"])
	}
	first := got[0].(map[string]any)
	if first["text"] != "quoted passage" || first["xpath"] != "/html/body/p[3]" || first["color"] != "yellow" {
		t.Errorf("annotation = %v", first)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/plugin/annotations", key, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing url status = %d, want 400", resp.StatusCode)
	}
}
