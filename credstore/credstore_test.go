package credstore_test

import (
	"context"
	"testing"

	"github.com/zalando/go-keyring"
	_ "modernc.org/sqlite"

	"github.com/marginote/marginote/credstore"
	"github.com/marginote/marginote/dbopen"
)

// lifecycle drives set → get → clear → get against any backend.
func lifecycle(t *testing.T, s credstore.Store) {
	t.Helper()
	ctx := context.Background()

	cred, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cred != "" {
		t.Fatalf("fresh store not empty: %q", cred)
	}

	if err := s.Set(ctx, "mk_testkey123"); err != nil {
		t.Fatal(err)
	}
	cred, err = s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cred != "mk_testkey123" {
		t.Fatalf("got %q, want mk_testkey123", cred)
	}

	// Overwrite replaces, it does not append.
	if err := s.Set(ctx, "mk_rotated456"); err != nil {
		t.Fatal(err)
	}
	cred, _ = s.Get(ctx)
	if cred != "mk_rotated456" {
		t.Fatalf("got %q after overwrite", cred)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	cred, err = s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cred != "" {
		t.Fatalf("store not empty after clear: %q", cred)
	}

	// Clearing an empty store is a no-op, not an error.
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("double clear: %v", err)
	}
}

func TestMemory(t *testing.T) {
	lifecycle(t, credstore.NewMemory())
}

func TestSQLite(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(credstore.Schema))
	lifecycle(t, credstore.NewSQLite(db))
}

func TestKeyring(t *testing.T) {
	keyring.MockInit()
	lifecycle(t, credstore.NewKeyring("marginote-test"))
}
