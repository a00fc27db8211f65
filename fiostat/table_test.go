// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiostat

import (
	"math"
	"reflect"
	"testing"

	"github.com/virt-perf/fioreport/fiofmt"
)

// kpi returns a KPI with the given sortable dimensions and bandwidth.
func kpi(backend, rw, bs, iodepth, round string, bw float64) *fiofmt.KPI {
	return &fiofmt.KPI{
		Backend: backend,
		Driver:  "scsi",
		Format:  "raw",
		RW:      rw,
		BS:      bs,
		IODepth: iodepth,
		NumJobs: "1",
		Round:   round,
		BW:      bw,
		IOPS:    100,
		Lat:     1,
		Clat90:  2,
		Util:    95,
	}
}

func TestBuildSorts(t *testing.T) {
	records := []*fiofmt.KPI{
		kpi("nvme", "read", "64k", "1", "1", 100),
		kpi("hdd", "read", "4k", "16", "2", 100),
		kpi("hdd", "read", "4k", "16", "1", 100),
		// Numeric dimension order: 4k < 64k < 1m, 2 < 16.
		kpi("hdd", "read", "1m", "2", "1", 100),
		kpi("hdd", "write", "4k", "2", "1", 100),
	}
	tab := Build(records)

	if len(tab.Rows) != len(records) {
		t.Fatalf("got %d rows, want %d", len(tab.Rows), len(records))
	}
	var got []string
	for i, r := range tab.Rows {
		if r.Index != i {
			t.Errorf("row %d has index %d", i, r.Index)
		}
		got = append(got, r.Backend+"/"+r.RW+"/"+r.BS+"/"+r.IODepth+"/"+r.Round)
	}
	want := []string{
		"hdd/read/4k/16/1",
		"hdd/read/4k/16/2",
		"hdd/read/1m/2/1",
		"hdd/write/4k/2/1",
		"nvme/read/64k/1/1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sorted order\n got: %v\nwant: %v", got, want)
	}
}

func TestBuildRounds(t *testing.T) {
	k := kpi("hdd", "read", "4k", "1", "1", 12.345678)
	k.Lat = 1.23456
	k.Util = math.NaN()
	tab := Build([]*fiofmt.KPI{k})

	r := tab.Rows[0]
	if r.BW != 12.3457 {
		t.Errorf("BW = %v, want 12.3457", r.BW)
	}
	if r.Lat != 1.2346 {
		t.Errorf("Lat = %v, want 1.2346", r.Lat)
	}
	if !math.IsNaN(r.Util) {
		t.Errorf("Util = %v, want NaN", r.Util)
	}
}

func TestTableRecords(t *testing.T) {
	k := kpi("", "read", "4k", "1", "", 1)
	k.Util = math.NaN()
	tab := Build([]*fiofmt.KPI{k})

	recs := tab.Records()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	hdr := tab.Header()
	if len(rec) != len(hdr) {
		t.Fatalf("record has %d fields, header has %d", len(rec), len(hdr))
	}
	field := func(name string) string {
		for i, h := range hdr {
			if h == name {
				return rec[i]
			}
		}
		t.Fatalf("no column %q", name)
		return ""
	}
	if field("Backend") != "NaN" || field("Round") != "NaN" {
		t.Errorf("missing dimensions should render as NaN: %v", rec)
	}
	if field("Util(%)") != "NaN" {
		t.Errorf("Util(%%) = %q, want NaN", field("Util(%)"))
	}
	if field("BW(MiB/s)") != "1" {
		t.Errorf("BW(MiB/s) = %q, want 1", field("BW(MiB/s)"))
	}
}

func TestNumCompare(t *testing.T) {
	for _, test := range []struct {
		a, b string
		want int
	}{
		{"4k", "64k", -1},
		{"64k", "1m", -1},
		{"1m", "1m", 0},
		{"2", "16", -1},
		{"512", "4k", -1},
		{"1mb", "1m", 0},
		// Unparsable values sort after parsable ones, lexically
		// among themselves.
		{"4k", "NaN", -1},
		{"NaN", "weird", -1},
	} {
		if got := numCompare(test.a, test.b); got != test.want {
			t.Errorf("numCompare(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
		if got := numCompare(test.b, test.a); got != -test.want {
			t.Errorf("numCompare(%q, %q) = %d, want %d", test.b, test.a, got, -test.want)
		}
	}
}
