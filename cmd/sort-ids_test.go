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

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortIDsCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "ids.txt", "read_2\nREAD10\n\nread1\nRead10\nreadA\n")

	output := filepath.Join(dir, "sorted.txt")
	require.NoError(t, runCommand("sort-ids", input, "-o", output))
	contents, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, "read1\nread10\nread10\nread_2\nreada\n", string(contents))

	unique := filepath.Join(dir, "unique.txt.gz")
	require.NoError(t, runCommand("sort-ids", input, "-o", unique, "--unique"))
	n, err := sortIDs(unique, output, false)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestSortIDsFeedsFilter(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)
	input := writeFile(t, dir, "ids.txt", "r1\nR0\n")
	sorted := filepath.Join(dir, "sorted.txt")
	output := filepath.Join(dir, "output.sam")

	require.Error(t, runCommand("filter", records, "--ids", input, "-o", output))
	require.NoError(t, runCommand("sort-ids", input, "-o", sorted))
	require.NoError(t, runCommand("filter", records, "--ids", sorted, "-o", output))
	require.Equal(t, []string{"R2", "r2", "r3"}, samNames(t, output))
}

func TestSortIDsMissing(t *testing.T) {
	require.Error(t, runCommand("sort-ids", filepath.Join(t.TempDir(), "missing.txt")))
}
