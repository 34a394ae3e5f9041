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
	"io"
	"sort"

	psort "github.com/exascience/pargo/sort"
)

type stableIdentifierSorter []string

func (s stableIdentifierSorter) SequentialSort(i, j int) {
	sort.Strings(s[i:j])
}

func (s stableIdentifierSorter) NewTemp() psort.StableSorter {
	return stableIdentifierSorter(make([]string, len(s)))
}

func (s stableIdentifierSorter) Len() int {
	return len(s)
}

func (s stableIdentifierSorter) Less(i, j int) bool {
	return s[i] < s[j]
}

func (s stableIdentifierSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(stableIdentifierSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// SortIdentifiers sorts case-folded identifiers into the order that
// Run expects, using a parallel stable sort.
func SortIdentifiers(ids []string) {
	psort.StableSort(stableIdentifierSorter(ids))
}

// Unique removes consecutive duplicates from sorted identifiers.
func Unique(ids []string) []string {
	if len(ids) == 0 {
		return ids
	}
	j := 1
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[j-1] {
			ids[j] = ids[i]
			j++
		}
	}
	return ids[:j]
}

// ReadIdentifiers reads all remaining identifiers from ids.
func ReadIdentifiers(ids IDSource) (result []string, err error) {
	for {
		id, err := ids.Next()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return result, err
		}
		result = append(result, id)
	}
}

// WriteIdentifiers writes identifiers to w, one per line.
func WriteIdentifiers(w io.Writer, ids []string) error {
	out := bufio.NewWriter(w)
	for _, id := range ids {
		if _, err := out.WriteString(id); err != nil {
			return err
		}
		if err := out.WriteByte('\n'); err != nil {
			return err
		}
	}
	return out.Flush()
}
