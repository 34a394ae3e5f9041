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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/exascience/jtools/fastx"
	"github.com/exascience/jtools/filter"
	"github.com/exascience/jtools/internal"
	"github.com/exascience/jtools/sam"
)

const (
	idsFlag     = "ids"
	regexFlag   = "regex"
	outputFlag  = "output"
	keepFlag    = "keep"
	formatFlag  = "format"
	profileFlag = "profile"
)

// Record formats.
const (
	formatAuto  = "auto"
	formatSam   = "sam"
	formatFastx = "fastx"
)

var compressionExts = []string{".gz", ".xz", ".zst", ".bz2"}

// recordFormat determines whether a file holds alignments or raw
// reads. Standard input is assumed to be SAM unless a format is
// given.
func recordFormat(name, format string) (string, error) {
	switch format {
	case formatSam, formatFastx:
		return format, nil
	case formatAuto, "":
	default:
		return "", fmt.Errorf("unknown format %v", format)
	}
	if internal.IsStdStream(name) {
		return formatSam, nil
	}
	base := strings.ToLower(name)
	for _, ext := range compressionExts {
		base = strings.TrimSuffix(base, ext)
	}
	switch filepath.Ext(base) {
	case ".sam", ".bam", ".cram":
		return formatSam, nil
	case ".fq", ".fastq", ".fa", ".fasta", ".fna":
		return formatFastx, nil
	default:
		return "", fmt.Errorf("cannot determine the format of %v, please use --%v", name, formatFlag)
	}
}

// A pass is one filter run over a record file.
type pass struct {
	records string
	ids     string
	regex   *regexp.Regexp
	output  string
	keep    bool
	format  string
}

func (p *pass) policy() string {
	if p.keep {
		return "keep"
	}
	return "discard"
}

// check verifies that the records exist and the output can be
// created. A missing ID file is reported by filter.OpenIDs as
// filter.ErrIDSourceUnavailable.
func (p *pass) check() error {
	if err := internal.CheckExist(p.records); err != nil {
		return err
	}
	return internal.CheckCreate(p.output)
}

// run executes the pass. Identifiers are opened before the records,
// so that a missing ID file is reported before any input is read.
func (p *pass) run(ctx context.Context, logger *zap.Logger, commandLine string) (filter.Stats, error) {
	format, err := recordFormat(p.records, p.format)
	if err != nil {
		return filter.Stats{}, err
	}
	var ids *filter.IDReader
	if p.regex == nil {
		if ids, err = filter.OpenIDs(p.ids); err != nil {
			return filter.Stats{}, err
		}
		defer ids.Close()
	}
	switch format {
	case formatSam:
		return p.runSam(ctx, logger, ids, commandLine)
	default:
		return p.runFastx(ctx, ids)
	}
}

func (p *pass) runSam(ctx context.Context, logger *zap.Logger, ids *filter.IDReader, commandLine string) (filter.Stats, error) {
	input, err := sam.Open(p.records)
	if err != nil {
		return filter.Stats{}, err
	}
	defer input.Close()
	if p.regex == nil && !sam.IsQuerynameSorted(input.Header()) {
		logger.Warn("input header does not declare queryname sort order", zap.String("records", p.records), zap.String("sort_order", input.Header().SortOrder.String()))
	}
	hdr, err := sam.FilterHeader(input.Header(), commandLine)
	if err != nil {
		return filter.Stats{}, err
	}
	output, err := sam.Create(p.output, hdr)
	if err != nil {
		return filter.Stats{}, err
	}
	defer output.Close()
	return execute[*sam.Alignment](ctx, p, ids, input, output)
}

func (p *pass) runFastx(ctx context.Context, ids *filter.IDReader) (filter.Stats, error) {
	input, err := fastx.Open(p.records)
	if err != nil {
		return filter.Stats{}, err
	}
	defer input.Close()
	output, err := fastx.Create(p.output)
	if err != nil {
		return filter.Stats{}, err
	}
	defer output.Close()
	return execute[*fastx.Read](ctx, p, ids, input, output)
}

func execute[R filter.Record](ctx context.Context, p *pass, ids *filter.IDReader, records filter.RecordSource[R], sink filter.Sink[R]) (filter.Stats, error) {
	if p.regex != nil {
		return filter.RunMatch[R](ctx, records, sink, p.regex, p.keep)
	}
	return filter.Run[R](ctx, ids, records, sink, p.keep)
}

func statsFields(stats filter.Stats) []zap.Field {
	return []zap.Field{
		zap.Int64("identifiers", stats.Identifiers),
		zap.Int64("records_read", stats.RecordsRead),
		zap.Int64("records_matched", stats.RecordsMatched),
		zap.Int64("records_written", stats.RecordsWritten),
	}
}

func newFilterCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter <records>",
		Short: "Keep or discard the reads named in a sorted ID file",
		Long: `Filter a name-sorted SAM, BAM, FASTQ, or FASTA file against a sorted list of
read identifiers, or against a regular expression on the read names.

Matching is case-insensitive. Both the records and the identifiers must be
sorted by their lower-cased names in byte order. Note that "samtools sort -n"
does not produce this order. Sort alignments with

  ` + sam.SortCommand + `

and identifiers with "jtools sort-ids".`,
		Args: cobra.ExactArgs(1),
		RunE: a.runFilter,
	}

	flags := cmd.Flags()
	flags.String(idsFlag, "", "file with one read identifier per line, sorted")
	flags.String(regexFlag, "", "regular expression matched against read names, instead of --ids")
	flags.StringP(outputFlag, "o", "-", "output file; the extension selects the format")
	flags.BoolP(keepFlag, "k", false, "keep the matching reads instead of discarding them")
	flags.String(formatFlag, formatAuto, "record format: auto, sam, fastx")
	flags.String(profileFlag, "", "write a CPU profile to this file")

	cmd.PreRun = bindFilterFlagsFunc(a, flags)
	return cmd
}

// bindFilterFlagsFunc binds the cobra cmd flags to the equivalent
// config value being managed by viper.
func bindFilterFlagsFunc(a *app, flags *pflag.FlagSet) func(*cobra.Command, []string) {
	return func(*cobra.Command, []string) {
		for _, name := range []string{idsFlag, regexFlag, outputFlag, keepFlag, formatFlag, profileFlag} {
			mustBindPFlag(a.config, "filter."+name, flags.Lookup(name))
		}
	}
}

func (a *app) filterPass(records string) (*pass, error) {
	ids := a.config.GetString("filter." + idsFlag)
	expr := a.config.GetString("filter." + regexFlag)
	switch {
	case ids != "" && expr != "":
		return nil, fmt.Errorf("--%v and --%v are mutually exclusive", idsFlag, regexFlag)
	case ids == "" && expr == "":
		return nil, fmt.Errorf("either --%v or --%v is required", idsFlag, regexFlag)
	}
	p := &pass{
		records: records,
		ids:     ids,
		output:  a.config.GetString("filter." + outputFlag),
		keep:    a.config.GetBool("filter." + keepFlag),
		format:  a.config.GetString("filter." + formatFlag),
	}
	if expr != "" {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid --%v: %w", regexFlag, err)
		}
		p.regex = re
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *app) runFilter(cmd *cobra.Command, args []string) error {
	p, err := a.filterPass(args[0])
	if err != nil {
		return err
	}
	logger := a.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("filtering",
		zap.String("records", p.records),
		zap.String("ids", p.ids),
		zap.String("output", p.output),
		zap.String("policy", p.policy()),
	)
	commandLine := strings.Join(os.Args, " ")
	return timedRun(logger, a.config.GetString("filter."+profileFlag), "filter", func() error {
		stats, err := p.run(cmd.Context(), logger, commandLine)
		if err != nil {
			return err
		}
		logger.Info("filter statistics", statsFields(stats)...)
		return nil
	})
}
