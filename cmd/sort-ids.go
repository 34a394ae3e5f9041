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
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exascience/jtools/filter"
	"github.com/exascience/jtools/internal"
)

const uniqueFlag = "unique"

func newSortIDsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort-ids <ids>",
		Short: "Prepare an ID file for filtering",
		Long: `Lower-case, sort, and optionally deduplicate a file with one read identifier
per line, in exactly the order that the filter command expects. Blank lines
are dropped. The output is compressed if its extension asks for it.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runSortIDs,
	}

	flags := cmd.Flags()
	flags.StringP(outputFlag, "o", "-", "output file")
	flags.BoolP(uniqueFlag, "u", false, "remove duplicate identifiers")

	cmd.PreRun = func(*cobra.Command, []string) {
		mustBindPFlag(a.config, "sort-ids."+outputFlag, flags.Lookup(outputFlag))
		mustBindPFlag(a.config, "sort-ids."+uniqueFlag, flags.Lookup(uniqueFlag))
	}
	return cmd
}

func (a *app) runSortIDs(_ *cobra.Command, args []string) error {
	input := args[0]
	output := a.config.GetString("sort-ids." + outputFlag)
	unique := a.config.GetBool("sort-ids." + uniqueFlag)
	if err := internal.CheckExist(input); err != nil {
		return err
	}
	if err := internal.CheckCreate(output); err != nil {
		return err
	}
	return timedRun(a.logger, "", "sort-ids", func() error {
		ids, err := sortIDs(input, output, unique)
		if err != nil {
			return err
		}
		a.logger.Info("sorted identifiers", zap.String("input", input), zap.String("output", output), zap.Int("identifiers", ids))
		return nil
	})
}

// sortIDs writes the sorted identifiers of input to output, and
// returns how many were written.
func sortIDs(input, output string, unique bool) (n int, err error) {
	source, err := filter.OpenIDs(input)
	if err != nil {
		return 0, err
	}
	defer source.Close()
	ids, err := filter.ReadIdentifiers(source)
	if err != nil {
		return 0, err
	}
	filter.SortIdentifiers(ids)
	if unique {
		ids = filter.Unique(ids)
	}

	w, err := xopen.Wopen(output)
	if err != nil {
		return 0, err
	}
	defer func() {
		if nerr := w.Close(); err == nil {
			err = nerr
		}
	}()
	return len(ids), filter.WriteIdentifiers(w, ids)
}
