// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiofmt

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// clat90Key is the fio percentile label for the 90th percentile.
const clat90Key = "90.000000"

// A TagSyntaxError reports an unparsable description tag literal.
// It is a warning: the run's required indicators are unaffected.
type TagSyntaxError struct {
	Name string // source log identifier
	Text string // the literal that failed to parse
	Msg  string
}

func (e *TagSyntaxError) Error() string {
	return fmt.Sprintf("%s: parsing description %q: %s", e.Name, e.Text, e.Msg)
}

// KPI derives the performance indicators for r. name is used in error
// messages and recorded on the result; it is purely diagnostic.
//
// A failure on any required field returns a *MissingFieldError and no
// KPI. Problems with the optional description tags are returned as
// warnings alongside a complete KPI; callers should report them but
// need not treat them as failures.
func (r *RawRecord) KPI(name string) (*KPI, []error, error) {
	if len(r.Jobs) == 0 {
		return nil, nil, &MissingFieldError{name, "jobs"}
	}
	job := &r.Jobs[0]

	k := &KPI{Name: name}
	for _, opt := range []struct {
		key string
		dst *string
	}{
		{"rw", &k.RW},
		{"bs", &k.BS},
		{"iodepth", &k.IODepth},
		{"numjobs", &k.NumJobs},
	} {
		v, ok := job.Options[opt.key]
		if !ok {
			return nil, nil, &MissingFieldError{name, "job options." + opt.key}
		}
		*opt.dst = v
	}

	if job.Read == nil {
		return nil, nil, &MissingFieldError{name, "read"}
	}
	if job.Write == nil {
		return nil, nil, &MissingFieldError{name, "write"}
	}

	// Bandwidth is reported in KiB/s; the indicator is MiB/s.
	k.BW = job.Read.BW/1024 + job.Write.BW/1024

	// Each side's IOPS is truncated to an integer before summing.
	k.IOPS = float64(int64(job.Read.IOPS) + int64(job.Write.IOPS))

	// Latencies are reported in ns; the indicators are ms.
	k.Lat = (job.Read.LatNS.Mean + job.Write.LatNS.Mean) / 1e6

	rc, ok := job.Read.ClatNS.Percentile[clat90Key]
	if !ok {
		return nil, nil, &MissingFieldError{name, "read.clat_ns.percentile." + clat90Key}
	}
	wc, ok := job.Write.ClatNS.Percentile[clat90Key]
	if !ok {
		return nil, nil, &MissingFieldError{name, "write.clat_ns.percentile." + clat90Key}
	}
	k.Clat90 = (rc + wc) / 1e6

	util, err := reduceUtil(name, r.DiskUtil)
	if err != nil {
		return nil, nil, err
	}
	k.Util = util

	var warnings []error
	if desc, ok := job.Options["description"]; ok && desc != "" {
		tags, err := parseTags(desc)
		if err != nil {
			warnings = append(warnings, &TagSyntaxError{name, desc, err.Error()})
		}
		k.Backend = tags["backend"]
		k.Driver = tags["driver"]
		k.Format = tags["format"]
		k.Round = tags["round"]
	}
	return k, warnings, nil
}

// reduceUtil reduces the per-device utilization entries to a single
// indicator. With no entries the indicator is unavailable (NaN). With
// several entries the result is the minimum over real devices: the
// least-utilized device shows where the bottleneck is not, and
// aggregate roll-up entries are excluded so they cannot win the
// minimum.
func reduceUtil(name string, entries []DiskUtil) (float64, error) {
	switch len(entries) {
	case 0:
		return math.NaN(), nil
	case 1:
		return entries[0].Util, nil
	}
	min, found := math.Inf(1), false
	for _, e := range entries {
		if e.AggrUtil != nil {
			continue
		}
		if e.Util < min {
			min = e.Util
		}
		found = true
	}
	if !found {
		return 0, &MissingFieldError{name, "disk_util (no per-device entries)"}
	}
	return min, nil
}

// parseTags parses a description option as a literal key/value
// mapping and returns the tags as strings.
//
// Two forms are accepted: a JSON object, or a restricted
// single-quoted literal of the form {'key': 'value', 'n': 3}. Keys
// must be strings; values must be strings or plain numbers. Nothing
// is ever evaluated.
func parseTags(s string) (map[string]string, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		tags := make(map[string]string, len(obj))
		for key, v := range obj {
			switch v := v.(type) {
			case string:
				tags[key] = v
			case float64:
				tags[key] = trimFloat(v)
			default:
				return nil, fmt.Errorf("key %q: unsupported value type", key)
			}
		}
		return tags, nil
	}
	return parseQuotedTags(s)
}

// parseQuotedTags parses the restricted {'key': value, ...} literal
// form that fio harnesses pass in --description.
func parseQuotedTags(s string) (map[string]string, error) {
	p := &tagParser{s: strings.TrimSpace(s)}
	if !p.consume('{') {
		return nil, fmt.Errorf("expected '{'")
	}
	tags := make(map[string]string)
	p.space()
	if p.consume('}') {
		return tags, p.end()
	}
	for {
		key, err := p.scanString()
		if err != nil {
			return nil, err
		}
		p.space()
		if !p.consume(':') {
			return nil, fmt.Errorf("expected ':' after key %q", key)
		}
		p.space()
		val, err := p.scanValue()
		if err != nil {
			return nil, err
		}
		tags[key] = val
		p.space()
		if p.consume(',') {
			p.space()
			continue
		}
		if p.consume('}') {
			return tags, p.end()
		}
		return nil, fmt.Errorf("expected ',' or '}'")
	}
}

type tagParser struct {
	s   string
	pos int
}

func (p *tagParser) space() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *tagParser) consume(c byte) bool {
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *tagParser) end() error {
	p.space()
	if p.pos != len(p.s) {
		return fmt.Errorf("trailing text after '}'")
	}
	return nil
}

// scanString scans a single- or double-quoted string. Escapes are not
// supported; the grammar is deliberately strict.
func (p *tagParser) scanString() (string, error) {
	if p.pos >= len(p.s) || (p.s[p.pos] != '\'' && p.s[p.pos] != '"') {
		return "", fmt.Errorf("expected quoted string")
	}
	quote := p.s[p.pos]
	p.pos++
	i := strings.IndexByte(p.s[p.pos:], quote)
	if i < 0 {
		return "", fmt.Errorf("unterminated string")
	}
	v := p.s[p.pos : p.pos+i]
	p.pos += i + 1
	return v, nil
}

// scanValue scans a quoted string or a bare number.
func (p *tagParser) scanValue() (string, error) {
	if p.pos < len(p.s) && (p.s[p.pos] == '\'' || p.s[p.pos] == '"') {
		return p.scanString()
	}
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", fmt.Errorf("expected string or number value")
	}
	return p.s[start:p.pos], nil
}

// trimFloat formats a JSON number the way it would naturally be
// written as a tag, without a trailing ".0" for integral values.
func trimFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
