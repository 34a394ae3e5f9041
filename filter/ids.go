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
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shenwei356/xopen"
)

// IDReader produces the lines of a sorted identifier file, one at a
// time, case-folded. Blank lines are skipped.
//
// IDReader implements IDSource.
type IDReader struct {
	name   string
	buf    *bufio.Reader
	closer io.Closer
	line   int64
}

// NewIDReader returns an IDReader that reads from r.
func NewIDReader(r io.Reader) *IDReader {
	if buf, ok := r.(*bufio.Reader); ok {
		return &IDReader{buf: buf}
	}
	return &IDReader{buf: bufio.NewReader(r)}
}

// OpenIDs opens an identifier file. Compressed files are decompressed
// transparently. The name "-" denotes standard input.
//
// Failure to open the file is reported as ErrIDSourceUnavailable.
func OpenIDs(name string) (*IDReader, error) {
	ids := &IDReader{name: name}
	if err := ids.open(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (ids *IDReader) open() error {
	f, err := xopen.Ropen(ids.name)
	switch {
	case errors.Is(err, xopen.ErrNoContent):
		// an empty file is not an unavailable file
		ids.buf, ids.closer = bufio.NewReader(strings.NewReader("")), nil
	case err != nil:
		return &Error{Kind: ErrIDSourceUnavailable, Stream: IdentifierStream, Key: ids.name, Err: err}
	default:
		ids.buf, ids.closer = f.Reader, f
	}
	return nil
}

// Next returns the next case-folded identifier, or io.EOF when the
// file is exhausted. Lines that are not valid UTF-8 are reported as
// ErrMalformedIdentifier.
func (ids *IDReader) Next() (string, error) {
	for {
		line, err := ids.buf.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", &Error{Kind: ErrMalformedIdentifier, Stream: IdentifierStream, Position: ids.line + 1, Err: err}
		}
		if line == "" && err == io.EOF {
			return "", io.EOF
		}
		ids.line++
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if !utf8.ValidString(line) {
			return "", &Error{Kind: ErrMalformedIdentifier, Stream: IdentifierStream, Position: ids.line, Err: errors.New("line is not valid UTF-8")}
		}
		return strings.ToLower(line), nil
	}
}

// Line returns the number of lines consumed so far.
func (ids *IDReader) Line() int64 {
	return ids.line
}

// Close closes the underlying file, if any.
func (ids *IDReader) Close() error {
	if ids.closer == nil {
		return nil
	}
	err := ids.closer.Close()
	ids.closer = nil
	return err
}
