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
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exascience/jtools/fastx"
	"github.com/exascience/jtools/filter"
	"github.com/exascience/jtools/sam"
)

const sortedSam = "@HD\tVN:1.5\tSO:queryname\n" +
	"@SQ\tSN:chr1\tLN:1000\n" +
	"r1\t0\tchr1\t10\t60\t4M\t*\t0\t0\tACGT\tIIII\n" +
	"R2\t0\tchr1\t20\t60\t4M\t*\t0\t0\tACGT\tIIII\n" +
	"r2\t16\tchr1\t30\t60\t4M\t*\t0\t0\tACGT\tIIII\n" +
	"r3\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII\n"

const sortedFastq = "@Read1 first mate\nACGT\n+\nIIII\n" +
	"@read2\nTTGA\n+\nHHHH\n" +
	"@read3 x\nGGCC\n+\nJJJJ\n"

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func runCommand(args ...string) error {
	root := NewRootCommand()
	root.SetArgs(append([]string{"--log-level", "none"}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func samNames(t *testing.T, name string) []string {
	t.Helper()
	input, err := sam.Open(name)
	require.NoError(t, err)
	defer input.Close()
	var names []string
	for {
		aln, err := input.Next()
		if err == io.EOF {
			return names
		}
		require.NoError(t, err)
		names = append(names, aln.Name)
	}
}

func fastxKeys(t *testing.T, name string) []string {
	t.Helper()
	input, err := fastx.Open(name)
	require.NoError(t, err)
	defer input.Close()
	var keys []string
	for {
		r, err := input.Next()
		if err == io.EOF {
			return keys
		}
		require.NoError(t, err)
		keys = append(keys, string(r.Key()))
	}
}

func TestRecordFormat(t *testing.T) {
	tests := []struct {
		name, format, expected string
	}{
		{"reads.sam", formatAuto, formatSam},
		{"reads.BAM", formatAuto, formatSam},
		{"reads.cram", formatAuto, formatSam},
		{"-", formatAuto, formatSam},
		{"reads.fq.gz", formatAuto, formatFastx},
		{"reads.fastq", formatAuto, formatFastx},
		{"reads.fa.zst", formatAuto, formatFastx},
		{"-", formatFastx, formatFastx},
		{"reads.txt", formatSam, formatSam},
	}
	for _, test := range tests {
		format, err := recordFormat(test.name, test.format)
		require.NoError(t, err, test.name)
		require.Equal(t, test.expected, format, test.name)
	}

	_, err := recordFormat("reads.txt", formatAuto)
	require.Error(t, err)
	_, err = recordFormat("reads.sam", "vcf")
	require.Error(t, err)
}

func TestFilterCommandSam(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)
	ids := writeFile(t, dir, "ids.txt", "r2\n")

	kept := filepath.Join(dir, "kept.bam")
	require.NoError(t, runCommand("filter", records, "--ids", ids, "-o", kept, "-k"))
	require.Equal(t, []string{"R2", "r2"}, samNames(t, kept))

	discarded := filepath.Join(dir, "discarded.sam")
	require.NoError(t, runCommand("filter", records, "--ids", ids, "-o", discarded))
	require.Equal(t, []string{"r1", "r3"}, samNames(t, discarded))
}

func TestFilterCommandFastq(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "input.fq", sortedFastq)
	ids := writeFile(t, dir, "ids.txt", "read1\nread3\n")

	output := filepath.Join(dir, "output.fq.gz")
	require.NoError(t, runCommand("filter", records, "--ids", ids, "--output", output))
	require.Equal(t, []string{"read2"}, fastxKeys(t, output))
}

func TestFilterCommandRegex(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)

	output := filepath.Join(dir, "output.sam")
	require.NoError(t, runCommand("filter", records, "--regex", "^[rR]2$", "-o", output, "--keep"))
	require.Equal(t, []string{"R2", "r2"}, samNames(t, output))

	require.Error(t, runCommand("filter", records, "--regex", "(", "-o", output))
}

func TestFilterCommandFlags(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)
	ids := writeFile(t, dir, "ids.txt", "r2\n")
	output := filepath.Join(dir, "output.sam")

	require.Error(t, runCommand("filter", records, "-o", output))
	require.Error(t, runCommand("filter", records, "--ids", ids, "--regex", "r2", "-o", output))
	require.Error(t, runCommand("filter", "--ids", ids, "-o", output))
	require.ErrorIs(t, runCommand("filter", records, "--ids", filepath.Join(dir, "missing.txt"), "-o", output), filter.ErrIDSourceUnavailable)
	require.Error(t, runCommand("filter", filepath.Join(dir, "missing.sam"), "--ids", ids, "-o", output))
	require.Error(t, runCommand("filter", records, "--ids", ids, "--log-level", "loud", "-o", output))
}

func TestFilterCommandEnv(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)
	ids := writeFile(t, dir, "ids.txt", "r1\n")
	output := filepath.Join(dir, "output.sam")

	t.Setenv("JTOOLS_FILTER_KEEP", "true")
	t.Setenv("JTOOLS_FILTER_OUTPUT", output)
	require.NoError(t, runCommand("filter", records, "--ids", ids))
	require.Equal(t, []string{"r1"}, samNames(t, output))
}

func TestFilterCommandUnsorted(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)
	output := filepath.Join(dir, "output.sam")

	ids := writeFile(t, dir, "ids.txt", "r1\nr0\n")
	err := runCommand("filter", records, "--ids", ids, "-o", output)
	require.ErrorIs(t, err, filter.ErrIdentifiersNotSorted)
	require.Contains(t, err.Error(), "jtools sort-ids")

	empty := writeFile(t, dir, "empty.txt", "")
	require.ErrorIs(t, runCommand("filter", records, "--ids", empty, "-o", output), filter.ErrEmptyIDSource)
}

func TestFilterCommandLogFile(t *testing.T) {
	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)
	ids := writeFile(t, dir, "ids.txt", "r2\n")
	output := filepath.Join(dir, "output.sam")

	cmd, a := newRootCommand()
	cmd.SetArgs([]string{"--log-path", dir, "--log-format", "json", "filter", records, "--ids", ids, "-o", output})
	cmd.SetOut(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	require.NotNil(t, a.logFile)
	path := a.logFile.Path
	a.close()
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), ProgramMessage)
	require.Contains(t, string(contents), `"records_written":2`)
}
