// Command marginote-keygen mints a plugin API key, stores its hash in the
// server database, and prints the plain key once.
//
// Usage:
//
//	marginote-keygen -db marginote-server.db -label laptop
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/marginote/marginote/apiserver"
	"github.com/marginote/marginote/apiserver/store"
	"github.com/marginote/marginote/dbopen"
)

func main() {
	dbPath := flag.String("db", "marginote-server.db", "sqlite database path")
	label := flag.String("label", "", "label for the issued key (e.g. the device name)")
	flag.Parse()

	if err := run(*dbPath, *label); err != nil {
		fmt.Fprintln(os.Stderr, "marginote-keygen:", err)
		os.Exit(1)
	}
}

func run(dbPath, label string) error {
	db, err := dbopen.Open(dbPath,
		dbopen.WithSchema(store.Schema),
		dbopen.WithMkdirAll())
	if err != nil {
		return err
	}
	defer db.Close()

	plain, hash, err := apiserver.MintKey()
	if err != nil {
		return err
	}

	id, err := store.New(db).InsertKey(context.Background(), label, hash)
	if err != nil {
		return err
	}

	fmt.Printf("key id: %s\n", id)
	fmt.Printf("API key (shown once, store it now): %s\n", plain)
	return nil
}
