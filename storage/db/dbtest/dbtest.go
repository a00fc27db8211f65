// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest provides a database for testing.
package dbtest

import (
	"testing"

	"github.com/virt-perf/fioreport/storage/db"
	_ "github.com/virt-perf/fioreport/storage/db/sqlite3"
)

// NewDB makes a connection to an empty in-memory testing database.
// cleanup must be called when done with the testing database, instead
// of calling db.Close().
func NewDB(t *testing.T) (*db.DB, func()) {
	d, err := db.OpenSQL("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	cleanup := func() { d.Close() }
	// Make sure the database really is empty.
	uploads, err := d.CountUploads()
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	if uploads != 0 {
		cleanup()
		t.Fatalf("found %d row(s) in Uploads, want 0", uploads)
	}
	return d, cleanup
}
