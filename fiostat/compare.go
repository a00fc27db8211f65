// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiostat

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/aclements/go-moremath/stats"
)

// indicators names the compared KPI columns, in display order.
var indicators = []string{"BW", "IOPS", "LAT", "CLAT90", "Util"}

// A MetricComparison compares one indicator of one bucket between the
// base and test sets. Statistics over an empty sample are NaN.
type MetricComparison struct {
	BaseMean float64
	BaseSD   float64 // percent relative standard deviation, ddof=1
	TestMean float64
	TestSD   float64
	Diff     float64 // percent difference of the means
	Signi    float64 // 1 - p-value of the t-test; NaN if undefined
}

// A ComparisonRow compares all indicators of one configuration
// bucket. Metrics is indexed like indicators: BW, IOPS, LAT, CLAT90,
// Util.
type ComparisonRow struct {
	Index int
	Config
	Metrics [5]MetricComparison
}

// A Comparison is a bucket-by-bucket comparison of two Tables.
type Comparison struct {
	Rows []ComparisonRow

	// Warnings is a list of non-fatal problems encountered while
	// comparing, such as a paired test falling back to the
	// independent test.
	Warnings []error
}

// Compare reduces base and test to one row per distinct 7-dimension
// bucket of test, in sorted bucket order. The round dimension is
// excluded from bucketing: repeated rounds of one configuration are
// the samples whose spread and significance are measured.
//
// If paired is set, significance uses the paired t-test, which
// requires the base and test rounds to correspond 1:1; buckets with
// mismatched sample counts fall back to the independent test with a
// warning. base may be empty, in which case all base-side statistics
// are NaN.
func Compare(base, test *Table, paired bool) *Comparison {
	seen := make(map[Config]bool)
	var buckets []Config
	for _, r := range test.Rows {
		b := r.Config.bucket()
		if !seen[b] {
			seen[b] = true
			buckets = append(buckets, b)
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].compare(buckets[j]) < 0
	})

	c := new(Comparison)
	for i, b := range buckets {
		baseRows := selectBucket(base, b)
		testRows := selectBucket(test, b)

		usePaired := paired
		if usePaired && len(baseRows) != len(testRows) {
			c.Warnings = append(c.Warnings, fmt.Errorf(
				"bucket %v: %d base and %d test rounds cannot be paired; using independent test",
				b, len(baseRows), len(testRows)))
			usePaired = false
		}

		row := ComparisonRow{Index: i, Config: b}
		for m, metric := range []func(*Row) float64{
			func(r *Row) float64 { return r.BW },
			func(r *Row) float64 { return r.IOPS },
			func(r *Row) float64 { return r.Lat },
			func(r *Row) float64 { return r.Clat90 },
			func(r *Row) float64 { return r.Util },
		} {
			bs := sample(baseRows, metric)
			ts := sample(testRows, metric)
			row.Metrics[m] = compareMetric(bs, ts, usePaired)
		}
		c.Rows = append(c.Rows, row)
	}
	return c
}

// selectBucket returns the rows of t whose 7-dimension tuple exactly
// equals b.
func selectBucket(t *Table, b Config) []*Row {
	if t == nil {
		return nil
	}
	var rows []*Row
	for i := range t.Rows {
		if t.Rows[i].Config.bucket() == b {
			rows = append(rows, &t.Rows[i])
		}
	}
	return rows
}

func sample(rows []*Row, metric func(*Row) float64) []float64 {
	xs := make([]float64, 0, len(rows))
	for _, r := range rows {
		xs = append(xs, metric(r))
	}
	return xs
}

func compareMetric(base, test []float64, paired bool) MetricComparison {
	baseMean, baseSD := summarize(base)
	testMean, testSD := summarize(test)
	return MetricComparison{
		BaseMean: round4(baseMean),
		BaseSD:   round4(baseSD),
		TestMean: round4(testMean),
		TestSD:   round4(testSD),
		Diff:     round4((testMean - baseMean) / baseMean * 100),
		Signi:    round4(significance(base, test, paired)),
	}
}

// summarize returns the mean and the percent relative standard
// deviation (sample standard deviation over mean, times 100) of xs.
// Both are NaN for an empty sample; the deviation is NaN for a
// single-element sample.
func summarize(xs []float64) (mean, pctSD float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	s := stats.Sample{Xs: xs}
	mean = s.Mean()
	if len(xs) < 2 {
		return mean, math.NaN()
	}
	return mean, s.StdDev() / mean * 100
}

// significance returns 1 minus the p-value of a t-test between the
// base and test samples: values near 1 indicate strong evidence that
// the means differ. The paired (repeated-measures) test is used when
// paired is set, the independent two-sample test otherwise.
//
// Zero variance makes the test statistic degenerate, but the samples
// themselves are then an exact result: equal means show no difference
// at all (significance 0) and unequal means show a certain one
// (significance 1). Samples too small to test yield NaN.
func significance(base, test []float64, paired bool) float64 {
	if len(base) == 0 || len(test) == 0 {
		return math.NaN()
	}
	var res *stats.TTestResult
	var err error
	if paired {
		res, err = stats.PairedTTest(base, test, 0, stats.LocationDiffers)
	} else {
		res, err = stats.TwoSampleTTest(
			stats.Sample{Xs: base}, stats.Sample{Xs: test}, stats.LocationDiffers)
	}
	switch err {
	case nil:
		return 1 - res.P
	case stats.ErrZeroVariance:
		b := stats.Sample{Xs: base}
		t := stats.Sample{Xs: test}
		if b.Mean() == t.Mean() {
			return 0
		}
		return 1
	}
	return math.NaN()
}

// Header returns the comparison's display column labels, index column
// first.
func (c *Comparison) Header() []string {
	h := []string{"", "Backend", "Driver", "Format", "RW", "BS", "IODepth", "Numjobs"}
	for _, ind := range indicators {
		h = append(h,
			"BASE-AVG-"+ind, "BASE-%SD-"+ind,
			"TEST-AVG-"+ind, "TEST-%SD-"+ind,
			"%DIFF-"+ind, "SIGNI-"+ind)
	}
	return h
}

// Records returns the comparison rows formatted for a sink, in header
// order.
func (c *Comparison) Records() [][]string {
	recs := make([][]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		rec := []string{
			strconv.Itoa(r.Index),
			dim(r.Backend), dim(r.Driver), dim(r.Format), dim(r.RW),
			dim(r.BS), dim(r.IODepth), dim(r.NumJobs),
		}
		for _, m := range r.Metrics {
			rec = append(rec,
				num(m.BaseMean), num(m.BaseSD),
				num(m.TestMean), num(m.TestSD),
				num(m.Diff), num(m.Signi))
		}
		recs = append(recs, rec)
	}
	return recs
}
