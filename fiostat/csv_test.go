// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiostat

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteCSV(t *testing.T) {
	tab := Build(rounds("hdd", 100.5, 99.5))

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tab); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), buf.String())
	}
	if lines[0] != ",Backend,Driver,Format,RW,BS,IODepth,Numjobs,Round,BW(MiB/s),IOPS,LAT(ms),CLAT90(ms),Util(%)" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0,hdd,scsi,raw,read,4k,1,1,1,100.5,") {
		t.Errorf("row 0 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "1,hdd,") {
		t.Errorf("row 1 = %q", lines[2])
	}
}

func TestWriteComparisonCSV(t *testing.T) {
	base := Build(rounds("hdd", 100, 102, 98))
	test := Build(rounds("hdd", 200, 204, 196))

	var buf bytes.Buffer
	if err := WriteCSV(&buf, Compare(base, test, false)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + 1 row:\n%s", len(lines), buf.String())
	}
	for _, col := range []string{"BASE-AVG-BW", "BASE-%SD-BW", "TEST-AVG-BW",
		"TEST-%SD-BW", "%DIFF-BW", "SIGNI-BW", "SIGNI-Util"} {
		if !strings.Contains(lines[0], col) {
			t.Errorf("header missing %q: %q", col, lines[0])
		}
	}
	if !strings.Contains(lines[1], ",100,") || !strings.Contains(lines[1], ",200,") {
		t.Errorf("row missing means: %q", lines[1])
	}
}

func TestWriteCSVFile(t *testing.T) {
	tab := Build(rounds("hdd", 100))
	path := filepath.Join(t.TempDir(), "fio_report.csv")
	if err := WriteCSVFile(path, tab); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "BW(MiB/s)") {
		t.Errorf("report content: %q", data)
	}

	// An unwritable destination is an error, not a panic or retry.
	if err := WriteCSVFile(filepath.Join(t.TempDir(), "missing", "out.csv"), tab); err == nil {
		t.Error("expected error for unwritable destination")
	}
}

func TestFormatHTML(t *testing.T) {
	var buf bytes.Buffer
	FormatHTML(&buf, Build(rounds("hdd", 100)))
	out := buf.String()
	for _, want := range []string{"<table class='fioreport'>", "<th>BW(MiB/s)", "<td>hdd"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML output missing %q:\n%s", want, out)
		}
	}
}
