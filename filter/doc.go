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

// Package filter removes or keeps the records of a name-sorted
// sequencing file according to a sorted list of read names, in a
// single pass over both files.
//
// The records can come from any format that implements the
// RecordSource and Sink interfaces of this package. The sam package
// provides them for SAM and BAM files, the fastx package for FASTQ
// and FASTA files.
//
// Both inputs must be sorted by their case-folded names. Records
// with the same name, such as mates or multi-mapped alignments, may
// follow each other. Run verifies the sort order while it filters,
// and stops with ErrIdentifiersNotSorted or ErrRecordsNotSorted as
// soon as it is violated.
package filter
