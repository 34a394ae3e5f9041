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
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/exascience/jtools/filter"
)

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "manifest.tsv", "# records\tids\toutput\n"+
		"a.sam\ta.txt\ta.out.sam\n"+
		"\n"+
		"b.fq\tb.txt\tb.out.fq\tkeep\n"+
		"c.sam\tc.txt\tc.out.sam\tdiscard\n")

	jobs, err := readManifest(manifest, true, formatAuto)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	require.Equal(t, 2, jobs[0].line)
	require.Equal(t, "a.sam", jobs[0].records)
	require.Equal(t, "a.txt", jobs[0].ids)
	require.Equal(t, "a.out.sam", jobs[0].output)
	require.True(t, jobs[0].keep)
	require.Equal(t, 4, jobs[1].line)
	require.True(t, jobs[1].keep)
	require.False(t, jobs[2].keep)
}

func TestReadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	for _, contents := range []string{
		"",
		"# nothing\n",
		"a.sam\ta.txt\n",
		"a.sam\ta.txt\ta.out.sam\tmaybe\n",
		"a.sam\ta.txt\t\n",
		"a.sam\ta.txt\tout.sam\nb.sam\tb.txt\t./out.sam\n",
		"a.sam\ta.txt\t-\nb.sam\tb.txt\t/dev/stdout\n",
	} {
		_, err := readManifest(writeFile(t, dir, "manifest.tsv", contents), false, formatAuto)
		require.Error(t, err, contents)
	}
	_, err := readManifest(filepath.Join(dir, "missing.tsv"), false, formatAuto)
	require.Error(t, err)
}

func TestRunBatch(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)
	var jobs []batchJob
	for i, ids := range []string{"r1\n", "r2\n", "r3\n", "r1\nr0\n"} {
		jobs = append(jobs, batchJob{
			line: i + 1,
			pass: pass{
				records: records,
				ids:     writeFile(t, dir, "ids"+string(rune('a'+i))+".txt", ids),
				output:  filepath.Join(dir, "out"+string(rune('a'+i))+".sam"),
				format:  formatAuto,
			},
		})
	}

	jobs = append(jobs, batchJob{
		line: 5,
		pass: pass{
			records: filepath.Join(dir, "missing.sam"),
			ids:     jobs[0].ids,
			output:  filepath.Join(dir, "oute.sam"),
			format:  formatAuto,
		},
	})

	stats, errs := runBatch(context.Background(), zap.NewNop(), jobs, 2, "jtools filter-batch")
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NoError(t, errs[2])
	require.ErrorIs(t, errs[3], filter.ErrIdentifiersNotSorted)
	require.Error(t, errs[4])
	require.NoFileExists(t, jobs[4].output)

	require.Equal(t, int64(3), stats[0].RecordsWritten)
	require.Equal(t, int64(2), stats[1].RecordsWritten)
	require.Equal(t, []string{"r1", "R2", "r2"}, samNames(t, jobs[2].output))
}

func TestFilterBatchCommand(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	records := writeFile(t, dir, "input.sam", sortedSam)
	reads := writeFile(t, dir, "input.fq", sortedFastq)
	ids := writeFile(t, dir, "ids.txt", "r2\nread2\n")
	keptSam := filepath.Join(dir, "kept.sam")
	keptFastq := filepath.Join(dir, "kept.fq")
	discardedSam := filepath.Join(dir, "discarded.sam")

	manifest := writeFile(t, dir, "manifest.tsv", strings.Join([]string{
		records + "\t" + ids + "\t" + keptSam,
		reads + "\t" + ids + "\t" + keptFastq,
		records + "\t" + ids + "\t" + discardedSam + "\tdiscard",
	}, "\n")+"\n")

	require.NoError(t, runCommand("filter-batch", manifest, "-k", "--jobs", "3"))
	require.Equal(t, []string{"R2", "r2"}, samNames(t, keptSam))
	require.Equal(t, []string{"read2"}, fastxKeys(t, keptFastq))
	require.Equal(t, []string{"r1", "r3"}, samNames(t, discardedSam))

	broken := writeFile(t, dir, "broken.tsv", records+"\t"+filepath.Join(dir, "missing.txt")+"\t"+keptSam+"\n"+
		records+"\t"+ids+"\t"+discardedSam+"\n")
	err := runCommand("filter-batch", broken)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 2 filter passes failed")

	duplicate := writeFile(t, dir, "duplicate.tsv", records+"\t"+ids+"\t"+keptSam+"\n"+
		reads+"\t"+ids+"\t"+keptSam+"\n")
	require.ErrorContains(t, runCommand("filter-batch", duplicate), "also written by line 1")
}
