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

// Package fastx reads and writes FASTQ and FASTA files as record
// streams for the name-based filter in package filter.
//
// Files may be compressed with gzip, xz, zstd, or bzip2; the
// compression is detected on input and chosen by filename extension
// on output.
package fastx

import (
	"errors"
	"io"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// A Read is a single FASTQ or FASTA record.
//
// Read implements filter.Record.
type Read fastx.Record

// Key returns the read identifier, which is the first word of the
// header line.
func (r *Read) Key() []byte {
	return r.ID
}

// InputFile represents a FASTQ or FASTA file for input.
//
// InputFile implements filter.RecordSource.
type InputFile struct {
	reader *fastx.Reader
}

// Open a FASTQ or FASTA file for input. The name "-" denotes
// os.Stdin.
func Open(name string) (*InputFile, error) {
	reader, err := fastx.NewReader(seq.Unlimit, name, fastx.DefaultIDRegexp)
	if errors.Is(err, xopen.ErrNoContent) {
		return &InputFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &InputFile{reader: reader}, nil
}

// Next returns the next read, or io.EOF at the end of the file. The
// returned read is only valid until the next call to Next.
func (f *InputFile) Next() (*Read, error) {
	if f.reader == nil {
		return nil, io.EOF
	}
	record, err := f.reader.Read()
	if err != nil {
		return nil, err
	}
	return (*Read)(record), nil
}

// SortCommand tells how to sort a FASTQ file by read name.
func (f *InputFile) SortCommand() string {
	return `paste - - - - | awk -F'\t' '{split($1, id, " "); print tolower(id[1]) "\t" $0}' | LC_ALL=C sort -k1,1 | cut -f2- | tr "\t" "\n"`
}

// Close closes the input file.
func (f *InputFile) Close() error {
	if f.reader == nil {
		return nil
	}
	f.reader.Close()
	return nil
}

// OutputFile represents a FASTQ or FASTA file for output.
//
// OutputFile implements filter.Sink.
type OutputFile struct {
	writer   *xopen.Writer
	finished bool
}

// Create a FASTQ or FASTA file for output. The name "-" denotes
// os.Stdout. A filename extension such as .gz selects the
// compression.
func Create(name string) (*OutputFile, error) {
	writer, err := xopen.Wopen(name)
	if err != nil {
		return nil, err
	}
	return &OutputFile{writer: writer}, nil
}

// Write writes a read to the output file. Reads with qualities are
// written as FASTQ, others as FASTA.
func (f *OutputFile) Write(r *Read) error {
	_, err := f.writer.Write((*fastx.Record)(r).Format(0))
	return err
}

// Finish flushes the output file and closes it. Further calls to
// Finish or Close do nothing.
func (f *OutputFile) Finish() error {
	if f.finished {
		return nil
	}
	f.finished = true
	return f.writer.Close()
}

// Close releases the output file if Finish has not been called.
func (f *OutputFile) Close() error {
	return f.Finish()
}
