// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db provides a SQL archive for parsed fio runs. Reports are
// regenerated from the logs on every invocation; the archive exists
// so that KPI history survives the logs being rotated away.
package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/virt-perf/fioreport/fiofmt"
	"golang.org/x/net/context"
)

// DB is a high-level interface to a run archive. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertUpload *sql.Stmt
	insertRun    *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(driverName); err != nil {
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Uploads (
	UploadID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}}
);
CREATE TABLE IF NOT EXISTS Runs (
	UploadID BIGINT UNSIGNED,
	RunID BIGINT UNSIGNED,
	Name VARCHAR(255),
	Backend VARCHAR(255),
	Driver VARCHAR(255),
	Format VARCHAR(255),
	RW VARCHAR(255),
	BS VARCHAR(255),
	IODepth VARCHAR(255),
	Numjobs VARCHAR(255),
	Round VARCHAR(255),
	BW DOUBLE,
	IOPS DOUBLE,
	Lat DOUBLE,
	Clat90 DOUBLE,
	Util DOUBLE,
	PRIMARY KEY (UploadID, RunID),
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE
);
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements(driverName string) error {
	var err error
	q := "INSERT INTO Uploads() VALUES ()"
	if driverName == "sqlite3" {
		q = "INSERT INTO Uploads DEFAULT VALUES"
	}
	db.insertUpload, err = db.sql.Prepare(q)
	if err != nil {
		return err
	}
	db.insertRun, err = db.sql.Prepare("INSERT INTO Runs(UploadID, RunID, Name, Backend, Driver, Format, RW, BS, IODepth, Numjobs, Round, BW, IOPS, Lat, Clat90, Util) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// An Upload is a collection of runs that share an upload ID,
// typically one reporting invocation.
type Upload struct {
	// ID is the identifier associated with every run in this
	// upload.
	ID string

	// id is the numeric value used as the primary key. ID is a
	// string for the public API; the underlying table actually
	// uses an integer key.
	id int64
	// runid is the index of the next run to insert.
	runid int64
	// db is the underlying database that this upload is going to.
	db *DB
}

// NewUpload returns an upload for storing new runs.
// All runs written to the Upload will have the same upload ID.
func (db *DB) NewUpload(ctx context.Context) (*Upload, error) {
	res, err := db.insertUpload.Exec()
	if err != nil {
		return nil, err
	}
	i, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Upload{
		ID: fmt.Sprint(i),
		id: i,
		db: db,
	}, nil
}

// InsertKPI inserts a single run's KPI record in an existing upload.
// Unavailable values are stored as NULL.
func (u *Upload) InsertKPI(k *fiofmt.KPI) (err error) {
	tx, err := u.db.sql.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	_, err = tx.Stmt(u.db.insertRun).Exec(u.id, u.runid, k.Name,
		nullStr(k.Backend), nullStr(k.Driver), nullStr(k.Format),
		k.RW, k.BS, k.IODepth, k.NumJobs, nullStr(k.Round),
		nullNum(k.BW), nullNum(k.IOPS), nullNum(k.Lat), nullNum(k.Clat90), nullNum(k.Util))
	if err != nil {
		return err
	}
	u.runid++
	return nil
}

// nullStr maps the empty (unavailable) tag value to NULL.
func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullNum maps an unavailable indicator value to NULL. SQL drivers
// reject NaN outright.
func nullNum(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// CountUploads returns the number of uploads in the database.
func (db *DB) CountUploads() (int, error) {
	var uploads int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Uploads").Scan(&uploads)
	return uploads, err
}

// CountRuns returns the number of archived runs in the upload with
// the given ID.
func (db *DB) CountRuns(uploadID string) (int, error) {
	var runs int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Runs WHERE UploadID = ?", uploadID).Scan(&runs)
	return runs, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	if err := db.insertUpload.Close(); err != nil {
		return err
	}
	if err := db.insertRun.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
