// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiostat

import (
	"bytes"
	"html/template"
)

var htmlTemplate = template.Must(template.New("").Parse(`
<table class='fioreport'>
<thead>
<tr>{{range .Header}}<th>{{.}}{{end}}
</thead>
<tbody>
{{range .Records -}}
<tr>{{range .}}<td>{{.}}{{end}}
{{end -}}
</tbody>
</table>
`))

// FormatHTML appends an HTML formatting of the report to buf.
func FormatHTML(buf *bytes.Buffer, r Report) {
	err := htmlTemplate.Execute(buf, r)
	if err != nil {
		// Only possible errors here are template not matching data structure.
		// Don't make caller check - it's our fault.
		panic(err)
	}
}
