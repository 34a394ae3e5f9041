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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/exascience/pargo/parallel"
	"github.com/google/uuid"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/willf/bitset"
	"go.uber.org/zap"

	"github.com/exascience/jtools/filter"
	"github.com/exascience/jtools/internal"
)

const jobsFlag = "jobs"

// A batchJob is one line of a batch manifest.
type batchJob struct {
	line int
	pass
}

// readManifest parses a tab-separated manifest with the columns
// records, ids, output, and optionally keep or discard. Empty lines
// and lines starting with # are skipped. No two lines may write the
// same output.
func readManifest(name string, keep bool, format string) (jobs []batchJob, err error) {
	reader, err := xopen.Ropen(name)
	if errors.Is(err, xopen.ErrNoContent) {
		return nil, fmt.Errorf("manifest %v is empty", name)
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := reader.Close(); err == nil {
			err = nerr
		}
	}()

	outputs := make(map[string]int)
	r := csv.NewReader(reader)
	r.Comma = '\t'
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w, while reading manifest %v", err, name)
		}
		line, _ := r.FieldPos(0)
		if len(fields) < 3 || len(fields) > 4 {
			return nil, fmt.Errorf("manifest %v, line %v: expected 3 or 4 columns, got %v", name, line, len(fields))
		}
		job := batchJob{
			line: line,
			pass: pass{
				records: strings.TrimSpace(fields[0]),
				ids:     strings.TrimSpace(fields[1]),
				output:  strings.TrimSpace(fields[2]),
				keep:    keep,
				format:  format,
			},
		}
		if job.output == "" {
			return nil, fmt.Errorf("manifest %v, line %v: missing output", name, line)
		}
		key := filepath.Clean(job.output)
		if internal.IsStdStream(job.output) {
			key = "-"
		}
		if prev, ok := outputs[key]; ok {
			return nil, fmt.Errorf("manifest %v, line %v: output %v is also written by line %v", name, line, job.output, prev)
		}
		outputs[key] = line
		if len(fields) == 4 {
			switch policy := strings.TrimSpace(fields[3]); policy {
			case "keep":
				job.keep = true
			case "discard":
				job.keep = false
			default:
				return nil, fmt.Errorf("manifest %v, line %v: unknown policy %q", name, line, policy)
			}
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("manifest %v lists no filter passes", name)
	}
	return jobs, nil
}

// runBatch runs all jobs with at most n of them at the same time, and
// returns the statistics and error of each job.
func runBatch(ctx context.Context, logger *zap.Logger, jobs []batchJob, n int, commandLine string) ([]filter.Stats, []error) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > len(jobs) {
		n = len(jobs)
	}
	stats := make([]filter.Stats, len(jobs))
	errs := make([]error, len(jobs))
	parallel.Range(0, len(jobs), n, func(low, high int) {
		for i := low; i < high; i++ {
			job := &jobs[i]
			jobLogger := logger.With(zap.Int("line", job.line), zap.String("records", job.records))
			if errs[i] = job.check(); errs[i] != nil {
				continue
			}
			stats[i], errs[i] = job.run(ctx, jobLogger, commandLine)
			if errs[i] == nil {
				jobLogger.Info("filter pass finished", statsFields(stats[i])...)
			}
		}
	})
	return stats, errs
}

func newFilterBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter-batch <manifest>",
		Short: "Run independent filter passes listed in a manifest",
		Long: `Run one filter pass per line of a tab-separated manifest with the columns

  records<TAB>ids<TAB>output[<TAB>keep|discard]

Passes run concurrently. A failing pass does not stop the others; every
failure is reported, and the command fails if any pass failed.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runFilterBatch,
	}

	flags := cmd.Flags()
	flags.BoolP(keepFlag, "k", false, "keep the matching reads, unless a manifest line says otherwise")
	flags.Int(jobsFlag, 0, "maximum number of concurrent passes (default GOMAXPROCS)")
	flags.String(formatFlag, formatAuto, "record format: auto, sam, fastx")

	cmd.PreRun = bindFilterBatchFlagsFunc(a, flags)
	return cmd
}

func bindFilterBatchFlagsFunc(a *app, flags *pflag.FlagSet) func(*cobra.Command, []string) {
	return func(*cobra.Command, []string) {
		mustBindPFlag(a.config, "filter-batch."+keepFlag, flags.Lookup(keepFlag))
		mustBindPFlag(a.config, "filter-batch."+jobsFlag, flags.Lookup(jobsFlag))
		mustBindPFlag(a.config, "filter-batch."+formatFlag, flags.Lookup(formatFlag))
		mustBindEnv(a.config, "filter-batch."+jobsFlag, "JTOOLS_FILTER_BATCH_JOBS", "JTOOLS_JOBS")
	}
}

func (a *app) runFilterBatch(cmd *cobra.Command, args []string) error {
	jobs, err := readManifest(args[0], a.config.GetBool("filter-batch."+keepFlag), a.config.GetString("filter-batch."+formatFlag))
	if err != nil {
		return err
	}
	logger := a.logger.With(zap.String("run_id", uuid.NewString()))
	commandLine := strings.Join(os.Args, " ")

	return timedRun(logger, "", "filter-batch", func() error {
		_, errs := runBatch(cmd.Context(), logger, jobs, a.config.GetInt("filter-batch."+jobsFlag), commandLine)
		failed := bitset.New(uint(len(jobs)))
		for i, err := range errs {
			if err != nil {
				failed.Set(uint(i))
			}
		}
		if failed.None() {
			logger.Info("all filter passes succeeded", zap.Int("passes", len(jobs)))
			return nil
		}
		for i, ok := failed.NextSet(0); ok; i, ok = failed.NextSet(i + 1) {
			logger.Error("filter pass failed", zap.Int("line", jobs[i].line), zap.String("records", jobs[i].records), zap.Error(errs[i]))
		}
		return fmt.Errorf("%v of %v filter passes failed", failed.Count(), len(jobs))
	})
}
