// Copyright 2015 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Fioreport generates and compares fio benchmark reports.
//
// Usage:
//
//	fioreport --result-path dir [--base-path dir] [--report-csv file] [options]
//
// The result directory should contain the fio logs of one result set:
// one "*.fiolog" file per run, produced with "fio --output-format=json"
// or json+, optionally packed one-per "*.tar.gz" archive. Logs may
// carry arbitrary text around the JSON payload; runs that cannot be
// parsed are reported and skipped. Additional configuration tags
// (backend, driver, format, round) are read from the job description
// option, as passed with "fio --description".
//
// With only --result-path, fioreport writes a per-run KPI table: one
// row per run with bandwidth (MiB/s), IOPS, mean latency (ms), 90th
// percentile completion latency (ms), and device utilization (%),
// keyed by the test configuration.
//
// With --base-path, fioreport instead compares the two result sets
// configuration by configuration: for each indicator it reports the
// mean and percent relative standard deviation of both sets, the
// percent difference of the means, and the significance of the
// difference, computed as 1 minus the p-value of a t-test between the
// two sets' rounds. Values near 1 indicate a real change; values near
// 0 indicate noise. The --paired flag selects the repeated-measures
// t-test for set-ups where base and test rounds correspond 1:1.
//
// The report is written as CSV to --report-csv, defaulting to
// fio_report.csv inside the result directory, and optionally as an
// HTML table to --report-html. With --store-driver, every parsed run
// is also archived into a SQL database (sqlite3 or mysql) for later
// trend analysis.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	_ "github.com/go-sql-driver/mysql"
	flag "github.com/spf13/pflag"

	"github.com/virt-perf/fioreport/fiofmt"
	"github.com/virt-perf/fioreport/fiostat"
	"github.com/virt-perf/fioreport/storage/db"
	_ "github.com/virt-perf/fioreport/storage/db/sqlite3"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: fioreport --result-path dir [options]\n")
	fmt.Fprintf(os.Stderr, "options:\n")
	flag.PrintDefaults()
	os.Exit(1)
}

var (
	flagResultPath  = flag.String("result-path", "", "`directory` holding the result set to report (required)")
	flagBasePath    = flag.String("base-path", "", "`directory` holding the base result set to compare against")
	flagReportCSV   = flag.String("report-csv", "", "write the CSV report to `file` (default <result-path>/fio_report.csv)")
	flagReportHTML  = flag.String("report-html", "", "also write the report as an HTML table to `file`")
	flagPaired      = flag.Bool("paired", false, "use the paired t-test; base and test rounds must correspond 1:1")
	flagStoreDriver = flag.String("store-driver", "", "archive parsed runs to this database `driver`: sqlite3 or mysql")
	flagStoreDSN    = flag.String("store-dsn", "", "data source `name` for --store-driver")
	flagProgress    = flag.Bool("progress", true, "show a progress bar while reading logs")
)

type options struct {
	resultPath  string
	basePath    string
	reportCSV   string
	reportHTML  string
	paired      bool
	storeDriver string
	storeDSN    string
	progress    bool
}

func main() {
	log.SetPrefix("fioreport: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if *flagResultPath == "" || flag.NArg() > 0 {
		flag.Usage()
	}

	opts := &options{
		resultPath:  *flagResultPath,
		basePath:    *flagBasePath,
		reportCSV:   *flagReportCSV,
		reportHTML:  *flagReportHTML,
		paired:      *flagPaired,
		storeDriver: *flagStoreDriver,
		storeDSN:    *flagStoreDSN,
		progress:    *flagProgress,
	}
	if err := report(opts); err != nil {
		log.Fatal(err)
	}
}

// report runs one reporting invocation end to end: collect, compare
// if a base set was given, write the sinks, archive if requested.
func report(opts *options) error {
	kpis, err := collectSet(opts.resultPath, opts.progress)
	if err != nil {
		return err
	}
	table := fiostat.Build(kpis)

	var rep fiostat.Report = table
	if opts.basePath != "" {
		baseKPIs, err := collectSet(opts.basePath, opts.progress)
		if err != nil {
			return err
		}
		cmp := fiostat.Compare(fiostat.Build(baseKPIs), table, opts.paired)
		for _, w := range cmp.Warnings {
			log.Printf("warning: %v", w)
		}
		rep = cmp
	}

	csvPath := opts.reportCSV
	if csvPath == "" {
		csvPath = filepath.Join(opts.resultPath, "fio_report.csv")
	}
	if err := fiostat.WriteCSVFile(csvPath, rep); err != nil {
		return err
	}
	log.Printf("wrote %s", csvPath)

	if opts.reportHTML != "" {
		var buf bytes.Buffer
		buf.WriteString(htmlHeader)
		fiostat.FormatHTML(&buf, rep)
		buf.WriteString(htmlFooter)
		if err := os.WriteFile(opts.reportHTML, buf.Bytes(), 0666); err != nil {
			return fmt.Errorf("writing report: %v", err)
		}
		log.Printf("wrote %s", opts.reportHTML)
	}

	if opts.storeDriver != "" {
		if err := storeRuns(opts.storeDriver, opts.storeDSN, kpis); err != nil {
			return fmt.Errorf("archiving runs: %v", err)
		}
	}
	return nil
}

// collectSet reads one result directory into KPI records. Per-run
// failures are logged and skipped; a directory with no usable logs at
// all is an error.
func collectSet(dir string, progress bool) ([]*fiofmt.KPI, error) {
	c := new(fiofmt.Collector)
	if progress {
		bar := pb.New(countInputs(dir)).SetWriter(os.Stderr).Start()
		defer bar.Finish()
		c.OnRun = func(string) { bar.Increment() }
	}

	if err := c.Collect(&fiofmt.Files{Dir: dir}); err != nil {
		return nil, fmt.Errorf("reading %s: %v", dir, err)
	}
	for _, err := range c.Failures {
		log.Printf("skipping run: %v", err)
	}
	for _, w := range c.Warnings {
		log.Printf("warning: %v", w)
	}
	if len(c.KPIs) == 0 {
		return nil, fmt.Errorf("no usable fio logs in %s", dir)
	}
	return c.KPIs, nil
}

// countInputs counts the recognized log artifacts in dir, for
// progress reporting only. Errors are left for the collector.
func countInputs(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".fiolog") || strings.HasSuffix(e.Name(), ".tar.gz") {
			n++
		}
	}
	return n
}

// storeRuns archives the collected runs as one upload.
func storeRuns(driver, dsn string, kpis []*fiofmt.KPI) error {
	d, err := db.OpenSQL(driver, dsn)
	if err != nil {
		return err
	}
	defer d.Close()

	u, err := d.NewUpload(context.Background())
	if err != nil {
		return err
	}
	for _, k := range kpis {
		if err := u.InsertKPI(k); err != nil {
			return err
		}
	}
	log.Printf("archived %d runs as upload %s", len(kpis), u.ID)
	return nil
}

var htmlHeader = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>fio Benchmark Report</title>
<style>
.fioreport { border-collapse: collapse; }
.fioreport th:nth-child(1) { text-align: left; }
.fioreport tbody td { text-align: right; padding: 0em 1em; }
.fioreport tr th { border-top: 1px solid #666; border-bottom: 1px solid #ccc; }
</style>
</head>
<body>
`
var htmlFooter = `</body>
</html>
`
