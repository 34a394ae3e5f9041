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
	"bytes"
	"context"
	"errors"
	"io"
)

type (
	// A Record is anything with a name that records can be matched
	// on, such as a SAM alignment or a FASTQ read.
	Record interface {
		Key() []byte
	}

	// A RecordSource produces records sorted by name. Next returns
	// io.EOF when there are no more records. Several consecutive
	// records may share the same name.
	RecordSource[R Record] interface {
		Next() (R, error)
	}

	// A Sink receives the records that pass the filter. Finish is
	// called exactly once, after the last Write of a pass that reached
	// the end of its record stream.
	Sink[R Record] interface {
		Write(R) error
		Finish() error
	}

	// An IDSource produces case-folded identifiers in sorted
	// order. Next returns io.EOF when there are no more identifiers.
	IDSource interface {
		Next() (string, error)
	}

	// Stats summarizes a filter pass.
	Stats struct {
		Identifiers    int64
		RecordsRead    int64
		RecordsMatched int64
		RecordsWritten int64
	}
)

// sortCommander can optionally be implemented by a RecordSource to
// tell users how to sort its input.
type sortCommander interface {
	SortCommand() string
}

// idCursor holds the current and previous identifier.
type idCursor struct {
	source    IDSource
	prev, cur []byte
	count     int64
}

// advance reads the next identifier. It returns false when the
// identifier stream is exhausted.
func (c *idCursor) advance() (bool, error) {
	id, err := c.source.Next()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, wrapSourceError(err, ErrMalformedIdentifier, IdentifierStream, c.count+1)
	}
	c.count++
	c.prev, c.cur = c.cur, []byte(id)
	if c.count > 1 && bytes.Compare(c.cur, c.prev) < 0 {
		return false, &Error{
			Kind:     ErrIdentifiersNotSorted,
			Stream:   IdentifierStream,
			Position: c.count,
			Key:      id,
			Hint:     IdentifierSortHint,
		}
	}
	return true, nil
}

// recordCursor holds the current record, its case-folded key, and
// the case-folded key of the previous record.
type recordCursor[R Record] struct {
	source    RecordSource[R]
	rec       R
	prev, key []byte
	count     int64
}

// advance reads the next record. It returns false when the record
// stream is exhausted.
func (c *recordCursor[R]) advance() (bool, error) {
	rec, err := c.source.Next()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, wrapSourceError(err, ErrMalformedRecord, RecordStream, c.count+1)
	}
	c.count++
	c.rec = rec
	c.prev, c.key = c.key, bytes.ToLower(rec.Key())
	if c.count > 1 && bytes.Compare(c.key, c.prev) < 0 {
		e := &Error{
			Kind:     ErrRecordsNotSorted,
			Stream:   RecordStream,
			Position: c.count,
			Key:      string(c.key),
		}
		if sc, ok := c.source.(sortCommander); ok {
			e.Hint = "Please sort with `" + sc.SortCommand() + "`"
		}
		return false, e
	}
	return true, nil
}

func wrapSourceError(err, kind error, stream Stream, position int64) error {
	var e *Error
	if errors.As(err, &e) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Kind: kind, Stream: stream, Position: position, Err: err}
}

type merger[R Record] struct {
	ids   idCursor
	recs  recordCursor[R]
	sink  Sink[R]
	keep  bool
	stats Stats
}

func (m *merger[R]) emit() error {
	if err := m.sink.Write(m.recs.rec); err != nil {
		return &Error{Kind: ErrWriteFailure, Stream: OutputStream, Position: m.stats.RecordsWritten + 1, Key: string(m.recs.key), Err: err}
	}
	m.stats.RecordsWritten++
	return nil
}

func (m *merger[R]) finish() error {
	if err := m.sink.Finish(); err != nil {
		return &Error{Kind: ErrFinalizeFailure, Stream: OutputStream, Err: err}
	}
	return nil
}

func (m *merger[R]) collect() Stats {
	m.stats.Identifiers = m.ids.count
	m.stats.RecordsRead = m.recs.count
	return m.stats
}

// prime reads the first identifier and the first record.
func (m *merger[R]) prime() error {
	ok, err := m.ids.advance()
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Kind: ErrEmptyIDSource, Stream: IdentifierStream}
	}
	ok, err = m.recs.advance()
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Kind: ErrEmptyRecordSource, Stream: RecordStream}
	}
	return nil
}

// merge runs the main loop while both streams are active.
func (m *merger[R]) merge(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch c := bytes.Compare(m.recs.key, m.ids.cur); {
		case c > 0:
			ok, err := m.ids.advance()
			if err != nil {
				return err
			}
			if !ok {
				// The current record did not match any identifier.
				if !m.keep {
					if err := m.emit(); err != nil {
						return err
					}
				}
				return m.flushTail(ctx)
			}
			// Do not decide on the current record yet.
			continue
		case c < 0:
			if !m.keep {
				if err := m.emit(); err != nil {
					return err
				}
			}
		default:
			m.stats.RecordsMatched++
			if m.keep {
				if err := m.emit(); err != nil {
					return err
				}
			}
			// The identifier stays: the next record may be a mate or
			// another alignment of the same read.
		}
		ok, err := m.recs.advance()
		if err != nil {
			return err
		}
		if !ok {
			return m.finish()
		}
	}
}

// flushTail drains the record stream after the identifiers are
// exhausted. Remaining records are written iff !keep. They are still
// read under keep, so that malformed or unsorted input is reported.
func (m *merger[R]) flushTail(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := m.recs.advance()
		if err != nil {
			return err
		}
		if !ok {
			return m.finish()
		}
		if !m.keep {
			if err := m.emit(); err != nil {
				return err
			}
		}
	}
}

// Run filters the records against the identifiers in a single merge
// pass over both streams. Both must be sorted by their case-folded
// names, and identifiers are compared to record keys after case
// folding. If keep is true, only records whose key matches an
// identifier are written to sink. If keep is false, exactly those
// records are removed.
//
// Run holds at most one record and two identifiers at any time. It
// stops at the first error. On success, sink.Finish has been called
// exactly once. On failure, whatever was written to sink is valid but
// incomplete, and sink.Finish has not been called.
func Run[R Record](ctx context.Context, ids IDSource, records RecordSource[R], sink Sink[R], keep bool) (Stats, error) {
	m := &merger[R]{
		ids:  idCursor{source: ids},
		recs: recordCursor[R]{source: records},
		sink: sink,
		keep: keep,
	}
	if err := m.prime(); err != nil {
		return m.collect(), err
	}
	err := m.merge(ctx)
	return m.collect(), err
}
