// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiofmt

// A Collector accumulates KPI records from a sequence of fio logs.
//
// Failures are isolated per run: a log that cannot be parsed is
// recorded in Failures and excluded from KPIs, and collection
// continues. Non-fatal problems (unparsable description tags,
// unreadable artifacts) accumulate in Warnings.
//
// The zero Collector is ready to use. Each Collector owns its
// accumulated state; use a fresh Collector per invocation.
type Collector struct {
	// KPIs holds one record per successfully parsed run, in the
	// order the supplier yielded them.
	KPIs []*KPI

	// Failures holds the per-run extraction errors. len(Failures)
	// is the number of runs excluded from KPIs.
	Failures []error

	// Warnings holds non-fatal problems worth reporting.
	Warnings []error

	// OnRun, if non-nil, is called with each blob identifier
	// before the blob is parsed. It exists for progress reporting.
	OnRun func(name string)
}

// Collect reads every log yielded by f and accumulates the results.
// It returns only f's top-level error; per-run failures are recorded
// in c.Failures.
func (c *Collector) Collect(f *Files) error {
	for f.Scan() {
		if c.OnRun != nil {
			c.OnRun(f.Name())
		}
		rec, err := ExtractBlock(f.Name(), f.Bytes())
		if err != nil {
			c.Failures = append(c.Failures, err)
			continue
		}
		kpi, warnings, err := rec.KPI(f.Name())
		if err != nil {
			c.Failures = append(c.Failures, err)
			continue
		}
		c.Warnings = append(c.Warnings, warnings...)
		c.KPIs = append(c.KPIs, kpi)
	}
	c.Warnings = append(c.Warnings, f.Warnings()...)
	return f.Err()
}
