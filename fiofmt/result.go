// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fiofmt provides a reader for the JSON output format of the
// fio disk benchmark.
//
// fio logs produced with --output-format=json or json+ are not pure
// JSON documents: test harnesses routinely prepend diagnostic text
// and append trailing output around the structured payload. This
// package locates the embedded JSON block, decodes it, and reduces it
// to a flat set of performance indicators (KPIs) per run.
//
// Reading is structured as a streaming operation modeled on
// bufio.Scanner: a Files iterates over the log blobs in a result
// directory, and a Collector accumulates one KPI per successfully
// parsed run. Parse failures are isolated per run; one malformed log
// never aborts a batch.
package fiofmt

import "math"

// A RawRecord is the decoded JSON payload of one fio log.
//
// Only the subset of fio's output consumed by KPI extraction is
// modeled. A RawRecord is transient: it is consumed entirely by the
// KPI method and not retained.
type RawRecord struct {
	Version  string     `json:"fio version"`
	Jobs     []Job      `json:"jobs"`
	DiskUtil []DiskUtil `json:"disk_util"`
}

// A Job is one fio job entry. Options holds the job options verbatim;
// fio emits every option value as a string.
type Job struct {
	Name    string            `json:"jobname"`
	Options map[string]string `json:"job options"`
	Read    *SideStats        `json:"read"`
	Write   *SideStats        `json:"write"`
}

// A SideStats holds the per-direction (read or write) measurements of
// one job. Bandwidth is in KiB/s and latencies are in nanoseconds, as
// fio reports them.
type SideStats struct {
	BW     float64  `json:"bw"`
	IOPS   float64  `json:"iops"`
	LatNS  LatStats `json:"lat_ns"`
	ClatNS LatStats `json:"clat_ns"`
}

// A LatStats is a latency distribution in nanoseconds. The percentile
// map is keyed by fio's fixed-precision labels, e.g. "90.000000".
type LatStats struct {
	Min        float64            `json:"min"`
	Max        float64            `json:"max"`
	Mean       float64            `json:"mean"`
	Percentile map[string]float64 `json:"percentile"`
}

// A DiskUtil is one per-device utilization entry. Entries that carry
// an aggregate utilization are roll-ups over member devices, not
// devices themselves.
type DiskUtil struct {
	Name     string   `json:"name"`
	Util     float64  `json:"util"`
	AggrUtil *float64 `json:"aggr_util"`
}

// A KPI is the flat set of performance indicators derived from one
// fio run. It is immutable once extracted.
//
// The four configuration tags (Backend, Driver, Format, Round) come
// from the free-form description job option and are "" when the
// description did not supply them. Util is NaN when the log carried
// no device utilization. Both render as "NaN" in report output.
type KPI struct {
	// Name identifies the source log, for diagnostics.
	Name string

	// Job options, verbatim from the first job entry.
	RW      string
	BS      string
	IODepth string
	NumJobs string

	// Tags from the description option.
	Backend string
	Driver  string
	Format  string
	Round   string

	BW     float64 // read+write bandwidth, MiB/s
	IOPS   float64 // read+write IOPS, each side truncated to integer
	Lat    float64 // read+write mean latency, ms
	Clat90 float64 // read+write 90th percentile completion latency, ms
	Util   float64 // device utilization, %; NaN if unavailable
}

// UtilAvailable reports whether the run carried device utilization.
func (k *KPI) UtilAvailable() bool {
	return !math.IsNaN(k.Util)
}
