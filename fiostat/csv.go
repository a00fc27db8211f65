// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiostat

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// A Report is a finalized table that a sink can consume: a header and
// one formatted record per row. Both *Table and *Comparison are
// Reports.
type Report interface {
	Header() []string
	Records() [][]string
}

var _ Report = (*Table)(nil)
var _ Report = (*Comparison)(nil)

// WriteCSV writes r to w in CSV form: the header, then one line per
// record. Numeric precision is as already rounded by the producer.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Header()); err != nil {
		return err
	}
	for _, rec := range r.Records() {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes r to the file at path, creating or truncating
// it. A write failure is reported to the caller; there is no retry.
func WriteCSVFile(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing report: %v", err)
	}
	if err := WriteCSV(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing report %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing report %s: %v", path, err)
	}
	return nil
}
