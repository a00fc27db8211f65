// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiofmt

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// A MalformedLogError reports a log that does not contain a decodable
// JSON block.
type MalformedLogError struct {
	Name string // source log identifier
	Msg  string
}

func (e *MalformedLogError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}

// A MissingFieldError reports a structurally required field that is
// absent from an otherwise well-formed log.
type MissingFieldError struct {
	Name  string // source log identifier
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Name, e.Field)
}

// ExtractBlock locates the first JSON document embedded in data and
// decodes it. name is used in error messages; it is purely diagnostic.
//
// The block runs from the first line beginning with "{" through the
// first subsequent line beginning with "}", inclusive. Text before
// and after the block is ignored. ExtractBlock returns a
// *MalformedLogError if no such block exists or if the block does not
// decode as a single JSON document.
func ExtractBlock(name string, data []byte) (*RawRecord, error) {
	lines := bytes.Split(data, []byte("\n"))

	begin, end := -1, 0
	for i, line := range lines {
		if len(line) > 0 && line[0] == '{' {
			begin = i
			break
		}
	}
	if begin < 0 {
		return nil, &MalformedLogError{name, "no JSON block found"}
	}
	for i := begin + 1; i < len(lines); i++ {
		if len(lines[i]) > 0 && lines[i][0] == '}' {
			end = i
			break
		}
	}
	// A missing closing line leaves end at 0, which the bounds
	// check below rejects along with inverted ranges.
	if begin >= end {
		return nil, &MalformedLogError{name, "no JSON block found"}
	}

	block := bytes.Join(lines[begin:end+1], []byte("\n"))
	rec := new(RawRecord)
	if err := json.Unmarshal(block, rec); err != nil {
		return nil, &MalformedLogError{name, fmt.Sprintf("decoding JSON block: %v", err)}
	}
	return rec, nil
}
