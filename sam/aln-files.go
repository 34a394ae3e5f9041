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

package sam

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

type (
	// alignmentReader is a common interface for reading both SAM and BAM files.
	alignmentReader interface {
		Header() *sam.Header
		Read() (*sam.Record, error)
	}

	// InputFile represents a SAM or BAM file for input.
	//
	// InputFile implements filter.RecordSource.
	InputFile struct {
		reader alignmentReader
		bam    *bam.Reader
		rc     io.ReadCloser
	}
)

// Header returns the header of the SAM/BAM input file.
func (f *InputFile) Header() *sam.Header {
	return f.reader.Header()
}

// Next returns the next alignment, or io.EOF at the end of the file.
func (f *InputFile) Next() (*Alignment, error) {
	rec, err := f.reader.Read()
	if err != nil {
		return nil, err
	}
	return (*Alignment)(rec), nil
}

// SortCommand tells how to sort a SAM/BAM file by lower-cased read
// name in byte order.
func (f *InputFile) SortCommand() string {
	return SortCommand
}

// SortCommand is a shell pipeline that sorts SAM records in the order
// the filter expects. Header lines stay first. Unlike this order,
// "samtools sort -n" puts read 9000 before read 10000 and does not
// fold case.
const SortCommand = `samtools view -h | awk -F'\t' '{print (/^@/ ? "" : tolower($1)) "\t" $0}' | LC_ALL=C sort -s -t "$(printf '\t')" -k1,1 | cut -f2-`

// Close closes the SAM/BAM input file.
func (f *InputFile) Close() (err error) {
	if f.bam != nil {
		err = f.bam.Close()
	}
	if f.rc != os.Stdin {
		if nerr := f.rc.Close(); err == nil {
			err = nerr
		}
	}
	return err
}

type (
	// alignmentWriter is a common interface for writing both SAM and BAM files.
	alignmentWriter interface {
		Write(*sam.Record) error
		Finish() error
	}

	// OutputFile represents a SAM or BAM file for output.
	//
	// OutputFile implements filter.Sink.
	OutputFile struct {
		writer   alignmentWriter
		wc       io.WriteCloser
		finished bool
	}
)

// Write writes an alignment to the SAM/BAM output file.
func (f *OutputFile) Write(aln *Alignment) error {
	return f.writer.Write((*sam.Record)(aln))
}

// Finish flushes all buffered alignments, writes the BAM end-of-file
// marker if necessary, and closes the output file. Further calls to
// Finish or Close do nothing.
func (f *OutputFile) Finish() error {
	if f.finished {
		return nil
	}
	f.finished = true
	err := f.writer.Finish()
	if f.wc != os.Stdout {
		if nerr := f.wc.Close(); err == nil {
			err = nerr
		}
	}
	return err
}

// Close releases the output file if Finish has not been called,
// for example after a failed filter pass. The output is then
// incomplete.
func (f *OutputFile) Close() error {
	return f.Finish()
}

type samWriter struct {
	buf *bufio.Writer
	sam *sam.Writer
}

func (w *samWriter) Write(rec *sam.Record) error {
	return w.sam.Write(rec)
}

func (w *samWriter) Finish() error {
	return w.buf.Flush()
}

type bamWriter struct {
	bam *bam.Writer
}

func (w *bamWriter) Write(rec *sam.Record) error {
	return w.bam.Write(rec)
}

func (w *bamWriter) Finish() error {
	return w.bam.Close()
}

// SAM file extensions.
const (
	SamExt  = ".sam"
	BamExt  = ".bam"
	cramExt = ".cram"
)

func isStdin(name string) bool {
	return name == "-" || name == "/dev/stdin"
}

func isStdout(name string) bool {
	return name == "-" || name == "/dev/stdout"
}

// Open a SAM or BAM file for input.
//
// If the filename extension is not .bam, then .sam is always
// assumed.
//
// If the name is "-" or "/dev/stdin", then the input is read from
// os.Stdin.
func Open(name string) (*InputFile, error) {
	ext := filepath.Ext(name)
	if ext == cramExt {
		return nil, fmt.Errorf("CRAM format not supported when opening %v", name)
	}
	var rc io.ReadCloser
	if isStdin(name) {
		rc = os.Stdin
	} else {
		file, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		rc = file
	}
	if ext == BamExt {
		reader, err := bam.NewReader(bufio.NewReader(rc), 0)
		if err != nil {
			_ = closeUnlessStdin(rc)
			return nil, fmt.Errorf("%v, while opening BAM file %v", err, name)
		}
		return &InputFile{reader: reader, bam: reader, rc: rc}, nil
	}
	reader, err := sam.NewReader(bufio.NewReader(rc))
	if err != nil {
		_ = closeUnlessStdin(rc)
		return nil, fmt.Errorf("%v, while opening SAM file %v", err, name)
	}
	return &InputFile{reader: reader, rc: rc}, nil
}

func closeUnlessStdin(rc io.ReadCloser) error {
	if rc == os.Stdin {
		return nil
	}
	return rc.Close()
}

// Create a SAM or BAM file for output, and write the given header to
// it.
//
// If the filename extension is not .bam, then .sam is always
// assumed.
//
// If the name is "-" or "/dev/stdout", then the output is written to
// os.Stdout.
func Create(name string, hdr *sam.Header) (*OutputFile, error) {
	ext := filepath.Ext(name)
	if ext == cramExt {
		return nil, fmt.Errorf("CRAM format not supported when creating %v", name)
	}
	var wc io.WriteCloser
	if isStdout(name) {
		wc = os.Stdout
	} else {
		file, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		wc = file
	}
	if ext == BamExt {
		writer, err := bam.NewWriter(wc, hdr, 0)
		if err != nil {
			if wc != os.Stdout {
				_ = wc.Close()
			}
			return nil, fmt.Errorf("%v, while writing a BAM header to %v", err, name)
		}
		return &OutputFile{writer: &bamWriter{bam: writer}, wc: wc}, nil
	}
	buf := bufio.NewWriter(wc)
	writer, err := sam.NewWriter(buf, hdr, sam.FlagDecimal)
	if err != nil {
		if wc != os.Stdout {
			_ = wc.Close()
		}
		return nil, fmt.Errorf("%v, while writing a SAM header to %v", err, name)
	}
	return &OutputFile{writer: &samWriter{buf: buf, sam: writer}, wc: wc}, nil
}
