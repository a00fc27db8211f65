// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// writeSet fills dir with one log per round, all one configuration,
// with the given bandwidths in KiB/s.
func writeSet(t *testing.T, dir string, bws ...float64) {
	t.Helper()
	for i, bw := range bws {
		round := i + 1
		log := fmt.Sprintf(`fio: starting run
{
 "fio version": "fio-3.19",
 "jobs": [
  {
   "jobname": "fio-test",
   "job options": {
    "rw": "read", "bs": "4k", "iodepth": "64", "numjobs": "1",
    "description": "{'backend': 'nvme', 'driver': 'scsi', 'format': 'raw', 'round': '%d'}"
   },
   "read": {
    "bw": %v, "iops": 100.0,
    "lat_ns": {"mean": 1000000.0},
    "clat_ns": {"percentile": {"90.000000": 2000000.0}}
   },
   "write": {
    "bw": 0, "iops": 0.0,
    "lat_ns": {"mean": 0.0},
    "clat_ns": {"percentile": {"90.000000": 0.0}}
   }
  }
 ],
 "disk_util": [{"name": "vda", "util": 95.0}]
}
run complete
`, round, bw)
		name := fmt.Sprintf("run-%d.fiolog", round)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(log), 0666); err != nil {
			t.Fatal(err)
		}
	}
}

// readCSV returns the report's rows as header-keyed maps.
func readCSV(t *testing.T, path string) (header []string, rows []map[string]string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) == 0 {
		t.Fatal("empty report")
	}
	header = recs[0]
	for _, rec := range recs[1:] {
		row := make(map[string]string)
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return header, rows
}

func TestReportSingleSet(t *testing.T) {
	dir := t.TempDir()
	writeSet(t, dir, 102400, 102400) // 100 MiB/s, rounds 1 and 2

	if err := report(&options{resultPath: dir}); err != nil {
		t.Fatal(err)
	}

	header, rows := readCSV(t, filepath.Join(dir, "fio_report.csv"))
	if got, want := header[1], "Backend"; got != want {
		t.Errorf("header[1] = %q, want %q", got, want)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for i, row := range rows {
		if row["BW(MiB/s)"] != "100" {
			t.Errorf("row %d BW = %q, want 100", i, row["BW(MiB/s)"])
		}
		if row["Round"] != strconv.Itoa(i+1) {
			t.Errorf("row %d Round = %q, want %d", i, row["Round"], i+1)
		}
	}
}

func TestReportComparison(t *testing.T) {
	base, test := t.TempDir(), t.TempDir()
	writeSet(t, base, 102400, 102400, 102400)
	writeSet(t, test, 204600, 204800, 205000) // double the base bandwidth

	out := filepath.Join(t.TempDir(), "cmp.csv")
	opts := &options{resultPath: test, basePath: base, reportCSV: out}
	if err := report(opts); err != nil {
		t.Fatal(err)
	}

	_, rows := readCSV(t, out)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row["BASE-AVG-BW"] != "100" {
		t.Errorf("BASE-AVG-BW = %q, want 100", row["BASE-AVG-BW"])
	}
	diff, err := strconv.ParseFloat(row["%DIFF-BW"], 64)
	if err != nil || diff < 99.5 || diff > 100.5 {
		t.Errorf("%%DIFF-BW = %q, want ~100", row["%DIFF-BW"])
	}
	signi, err := strconv.ParseFloat(row["SIGNI-BW"], 64)
	if err != nil || signi < 0.99 {
		t.Errorf("SIGNI-BW = %q, want >= 0.99", row["SIGNI-BW"])
	}
}

func TestReportHTML(t *testing.T) {
	dir := t.TempDir()
	writeSet(t, dir, 102400)

	html := filepath.Join(dir, "report.html")
	if err := report(&options{resultPath: dir, reportHTML: html}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(html)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<table class='fioreport'>", "Backend", "nvme"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("HTML report missing %q", want)
		}
	}
}

func TestReportEmptyDir(t *testing.T) {
	if err := report(&options{resultPath: t.TempDir()}); err == nil {
		t.Fatal("expected error for directory with no logs")
	}
}
