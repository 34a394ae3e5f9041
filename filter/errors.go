// jtools: a tool for filtering name-sorted SAM/BAM/FASTQ files.
// Copyright (c) 2017-2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by a filter pass. Use errors.Is to test for them.
var (
	// Configuration errors, reported before any merge work begins.
	ErrIDSourceUnavailable = errors.New("identifier file cannot be opened")
	ErrEmptyIDSource       = errors.New("identifier file is empty")
	ErrEmptyRecordSource   = errors.New("record file is empty")

	// Ordering violations.
	ErrIdentifiersNotSorted = errors.New("identifiers are not sorted")
	ErrRecordsNotSorted     = errors.New("records are not sorted by name")

	// Decode errors.
	ErrMalformedIdentifier = errors.New("malformed identifier")
	ErrMalformedRecord     = errors.New("malformed record")

	// I/O errors on the output side.
	ErrWriteFailure    = errors.New("failed to write record")
	ErrFinalizeFailure = errors.New("failed to finalize output")
)

// Stream names the input or output a filter Error refers to.
type Stream string

// The streams a filter pass touches.
const (
	IdentifierStream Stream = "identifiers"
	RecordStream     Stream = "records"
	OutputStream     Stream = "output"
)

// Error is the error type returned by Run and RunMatch. Kind is one
// of the Err* values of this package, Err is the underlying cause
// (may be nil).
type Error struct {
	Kind   error
	Stream Stream
	// Position is the 1-based index of the offending item in Stream,
	// or 0 if not applicable.
	Position int64
	// Key is the (case-folded) name or identifier involved, if any.
	Key string
	// Hint is an actionable remedy, such as the command to re-sort an input.
	Hint string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Position > 0 {
		fmt.Fprintf(&b, " at %v %v", e.Stream, e.Position)
	} else if e.Stream != "" {
		fmt.Fprintf(&b, " in %v", e.Stream)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " (%q)", e.Key)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Hint != "" {
		b.WriteString(". ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// Unwrap makes both the error kind and the underlying cause visible
// to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IdentifierSortHint is the remedy given for unsorted identifier files.
const IdentifierSortHint = "Please sort with `jtools sort-ids` or `tr A-Z a-z | LC_ALL=C sort`"
