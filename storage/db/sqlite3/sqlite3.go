// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for the run archive.
// It must be imported instead of github.com/mattn/go-sqlite3 so that
// foreign keys are enabled on every connection.
package sqlite3

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/virt-perf/fioreport/storage/db"
)

func init() {
	db.RegisterOpenHook("sqlite3", func(d *sql.DB) error {
		d.Driver().(*sqlite3.SQLiteDriver).ConnectHook = func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec("PRAGMA foreign_keys = ON;", nil)
			return err
		}
		// An in-memory database is per-connection; pooling
		// would silently hand out empty databases.
		d.SetMaxOpenConns(1)
		return nil
	})
}
