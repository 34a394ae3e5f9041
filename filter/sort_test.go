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
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeLargeIdentifierSlice() (result []string) {
	result = make([]string, 0x30000)
	for i := range result {
		result[i] = "read" + strconv.Itoa(rand.Intn(len(result)))
	}
	return result
}

func TestSortIdentifiers(t *testing.T) {
	SortIdentifiers(nil)

	ids := []string{"b", "a", "c", "a"}
	SortIdentifiers(ids)
	require.Equal(t, []string{"a", "a", "b", "c"}, ids)

	large := makeLargeIdentifierSlice()
	expected := append([]string(nil), large...)
	sort.Strings(expected)
	SortIdentifiers(large)
	require.Equal(t, expected, large)
}

func TestUnique(t *testing.T) {
	require.Empty(t, Unique(nil))
	require.Equal(t, []string{"a"}, Unique([]string{"a", "a", "a"}))
	require.Equal(t, []string{"a", "b", "c"}, Unique([]string{"a", "b", "b", "c", "c"}))
}

func TestSortedIdentifiersAreAccepted(t *testing.T) {
	input := "Read10\nread2\n\nREAD1\nread10\n"
	ids, err := ReadIdentifiers(NewIDReader(strings.NewReader(input)))
	require.NoError(t, err)
	SortIdentifiers(ids)
	ids = Unique(ids)

	var buf bytes.Buffer
	require.NoError(t, WriteIdentifiers(&buf, ids))
	require.Equal(t, "read1\nread10\nread2\n", buf.String())

	sink := &sliceSink{}
	_, err = Run[testRecord](context.Background(), NewIDReader(&buf), newSource("read1", "read10", "read3"), sink, true)
	require.NoError(t, err)
	require.Equal(t, []string{"read1", "read10"}, sink.names())
}

func BenchmarkSortIdentifiers(b *testing.B) {
	ids := makeLargeIdentifierSlice()
	tmp := make([]string, len(ids))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(tmp, ids)
		SortIdentifiers(tmp)
	}
}
