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
	"context"
	"io"
	"regexp"
)

// RunMatch filters records by matching their names against a regular
// expression instead of a list of identifiers. The names are not
// case-folded and the records need not be sorted. If keep is true,
// only matching records are written to sink, otherwise only
// non-matching records are.
//
// As with Run, an empty record source is an error, and sink.Finish is
// called once on success.
func RunMatch[R Record](ctx context.Context, records RecordSource[R], sink Sink[R], pattern *regexp.Regexp, keep bool) (stats Stats, err error) {
	for {
		if err = ctx.Err(); err != nil {
			return
		}
		rec, nerr := records.Next()
		if nerr == io.EOF {
			break
		}
		if nerr != nil {
			return stats, wrapSourceError(nerr, ErrMalformedRecord, RecordStream, stats.RecordsRead+1)
		}
		stats.RecordsRead++
		key := rec.Key()
		matched := pattern.Match(key)
		if matched {
			stats.RecordsMatched++
		}
		if matched == keep {
			if werr := sink.Write(rec); werr != nil {
				return stats, &Error{Kind: ErrWriteFailure, Stream: OutputStream, Position: stats.RecordsWritten + 1, Key: string(key), Err: werr}
			}
			stats.RecordsWritten++
		}
	}
	if stats.RecordsRead == 0 {
		return stats, &Error{Kind: ErrEmptyRecordSource, Stream: RecordStream}
	}
	if ferr := sink.Finish(); ferr != nil {
		return stats, &Error{Kind: ErrFinalizeFailure, Stream: OutputStream, Err: ferr}
	}
	return stats, nil
}
