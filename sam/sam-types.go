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
	"github.com/biogo/hts/sam"
	"github.com/google/uuid"

	"github.com/exascience/jtools/utils"
)

// An Alignment is a single read from a SAM or BAM file.
//
// Alignment implements filter.Record.
type Alignment sam.Record

// Key returns the read name, which is the key the filter matches
// identifiers against.
func (aln *Alignment) Key() []byte {
	return []byte(aln.Name)
}

// IsQuerynameSorted reports whether the header declares a sort order
// by read name.
func IsQuerynameSorted(hdr *sam.Header) bool {
	return hdr.SortOrder == sam.QueryName
}

// FilterHeader returns a copy of the input header with an @PG line
// for the given command line appended to the program chain.
func FilterHeader(hdr *sam.Header, commandLine string) (*sam.Header, error) {
	result := hdr.Clone()
	var prev string
	if progs := result.Progs(); len(progs) > 0 {
		prev = progs[len(progs)-1].UID()
	}
	uid := utils.ProgramName + "-" + uuid.NewString()[:8]
	pg := sam.NewProgram(uid, utils.ProgramName, commandLine, prev, utils.ProgramVersion)
	if err := result.AddProgram(pg); err != nil {
		return nil, err
	}
	return result, nil
}
