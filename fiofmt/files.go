// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiofmt

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// A Files reads fio log blobs from a result directory.
//
// Its API is modeled on bufio.Scanner. Two kinds of artifacts are
// recognized: plain "*.fiolog" files, and "*.tar.gz" archives each
// holding one "*.fiolog" member. Archives are unpacked in memory, so
// no temporary files outlive a call.
//
// Per-artifact read failures do not stop the scan; they accumulate in
// Warnings. Only a failure to read the directory itself stops the
// scan and is reported by Err.
type Files struct {
	// Dir is the result directory to read.
	Dir string

	// inputs is the sequence of remaining artifact names, or nil
	// if this Files has not started yet. Note that this
	// distinguishes nil from length 0.
	inputs []string

	name     string
	data     []byte
	warnings []error
	err      error
}

// init does first-use initialization of f.
func (f *Files) init() {
	// Set f.inputs to a non-nil slice to indicate initialization
	// has happened.
	f.inputs = []string{}

	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		f.err = err
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".fiolog") || strings.HasSuffix(name, ".tar.gz") {
			f.inputs = append(f.inputs, name)
		}
	}
	sort.Strings(f.inputs)
}

// Scan advances f to the next readable log blob and reports whether
// one was read. The caller should use the Name and Bytes methods to
// get the blob. When Scan returns false the caller should use the Err
// method to check for a directory read error.
func (f *Files) Scan() bool {
	if f.err != nil {
		return false
	}
	if f.inputs == nil {
		f.init()
		if f.err != nil {
			return false
		}
	}

	for len(f.inputs) > 0 {
		name := f.inputs[0]
		f.inputs = f.inputs[1:]

		path := filepath.Join(f.Dir, name)
		var data []byte
		var err error
		if strings.HasSuffix(name, ".tar.gz") {
			name, data, err = readArchivedLog(path)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			f.warnings = append(f.warnings, err)
			continue
		}
		f.name, f.data = name, data
		return true
	}
	return false
}

// Name returns the identifier of the blob just read by Scan. For
// archives this is the name of the log member, not the archive.
func (f *Files) Name() string {
	return f.name
}

// Bytes returns the raw text of the blob just read by Scan. The
// returned slice is owned by f and is only valid until the next call
// to Scan.
func (f *Files) Bytes() []byte {
	return f.data
}

// Warnings returns the per-artifact read failures encountered so far.
func (f *Files) Warnings() []error {
	return f.warnings
}

// Err returns the directory read error that stopped Scan, if any.
func (f *Files) Err() error {
	return f.err
}

// readArchivedLog extracts the single *.fiolog member of a tar.gz
// archive.
func readArchivedLog(path string) (name string, data []byte, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %v", path, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("%s: %v", path, err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".fiolog") {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %v", path, err)
		}
		return filepath.Base(hdr.Name), data, nil
	}
	return "", nil, fmt.Errorf("%s: no .fiolog member found", path)
}
