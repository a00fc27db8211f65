// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fiostat computes report tables over fio KPI records.
//
// A Table holds one row per benchmark run. Compare reduces a base and
// a test Table to one row per distinct test configuration, with mean,
// relative standard deviation, percentage difference, and t-test
// significance per indicator. Statistics are computed with
// github.com/aclements/go-moremath/stats.
package fiostat

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/virt-perf/fioreport/fiofmt"
)

// unavailable is the display form of a missing dimension or
// indicator value.
const unavailable = "NaN"

// A Config identifies one test configuration. Round distinguishes
// repeated samples of the same configuration; the other seven
// dimensions form the comparison bucket.
type Config struct {
	Backend string
	Driver  string
	Format  string
	RW      string
	BS      string
	IODepth string
	NumJobs string
	Round   string
}

// bucket returns c with the round dimension cleared.
func (c Config) bucket() Config {
	c.Round = ""
	return c
}

// compare orders configurations by (Backend, Driver, Format, RW, BS,
// IODepth, NumJobs, Round). The string dimensions compare lexically;
// BS, IODepth, NumJobs, and Round compare numerically.
func (c Config) compare(o Config) int {
	for _, d := range []struct {
		a, b    string
		numeric bool
	}{
		{c.Backend, o.Backend, false},
		{c.Driver, o.Driver, false},
		{c.Format, o.Format, false},
		{c.RW, o.RW, false},
		{c.BS, o.BS, true},
		{c.IODepth, o.IODepth, true},
		{c.NumJobs, o.NumJobs, true},
		{c.Round, o.Round, true},
	} {
		var r int
		if d.numeric {
			r = numCompare(d.a, d.b)
		} else {
			r = strings.Compare(d.a, d.b)
		}
		if r != 0 {
			return r
		}
	}
	return 0
}

// numCompare compares two dimension values numerically, accepting
// size suffixes ("4k", "1m") the way fio writes block sizes. Values
// that do not parse sort after all values that do, compared lexically
// among themselves, which keeps the order total.
func numCompare(a, b string) int {
	av, aok := parseSize(a)
	bv, bok := parseSize(b)
	switch {
	case aok && bok:
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
		return 0
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(a, b)
}

// parseSize parses a numeric dimension value with an optional binary
// size suffix: k, m, g, or t, optionally followed by b or B.
func parseSize(s string) (float64, bool) {
	mult := 1.0
	if n := strings.TrimSuffix(strings.TrimSuffix(s, "B"), "b"); n != s && n != "" {
		s = n
	}
	if s == "" {
		return 0, false
	}
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1 << 10
	case 'm', 'M':
		mult = 1 << 20
	case 'g', 'G':
		mult = 1 << 30
	case 't', 'T':
		mult = 1 << 40
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v * mult, true
}

// A Row is one run's entry in a Table.
type Row struct {
	Index int // contiguous from zero after sorting
	Config
	BW     float64
	IOPS   float64
	Lat    float64
	Clat90 float64
	Util   float64
}

// A Table is a report of per-run KPI records, sorted by configuration
// and rounded for display. Tables are immutable after Build.
type Table struct {
	Rows []Row
}

// Build constructs a Table from records: one row per record, sorted
// by the full dimension tuple, reindexed from zero, with all numeric
// indicators rounded to 4 decimal places.
func Build(records []*fiofmt.KPI) *Table {
	t := &Table{Rows: make([]Row, 0, len(records))}
	for _, k := range records {
		t.Rows = append(t.Rows, Row{
			Config: Config{
				Backend: k.Backend,
				Driver:  k.Driver,
				Format:  k.Format,
				RW:      k.RW,
				BS:      k.BS,
				IODepth: k.IODepth,
				NumJobs: k.NumJobs,
				Round:   k.Round,
			},
			BW:     round4(k.BW),
			IOPS:   round4(k.IOPS),
			Lat:    round4(k.Lat),
			Clat90: round4(k.Clat90),
			Util:   round4(k.Util),
		})
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Config.compare(t.Rows[j].Config) < 0
	})
	for i := range t.Rows {
		t.Rows[i].Index = i
	}
	return t
}

// round4 rounds v to 4 decimal places. NaN passes through as the
// unavailable marker.
func round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*1e4) / 1e4
}

// Header returns the table's display column labels, index column
// first.
func (t *Table) Header() []string {
	return []string{"", "Backend", "Driver", "Format", "RW", "BS",
		"IODepth", "Numjobs", "Round",
		"BW(MiB/s)", "IOPS", "LAT(ms)", "CLAT90(ms)", "Util(%)"}
}

// Records returns the table rows formatted for a sink, in header
// order.
func (t *Table) Records() [][]string {
	recs := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		recs = append(recs, []string{
			strconv.Itoa(r.Index),
			dim(r.Backend), dim(r.Driver), dim(r.Format), dim(r.RW),
			dim(r.BS), dim(r.IODepth), dim(r.NumJobs), dim(r.Round),
			num(r.BW), num(r.IOPS), num(r.Lat), num(r.Clat90), num(r.Util),
		})
	}
	return recs
}

// dim formats a dimension value, rendering missing values as the
// unavailable marker.
func dim(s string) string {
	if s == "" {
		return unavailable
	}
	return s
}

// num formats an indicator value. NaN renders as the unavailable
// marker; FormatFloat does that spelling already.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
