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

// Package cmd contains the jtools commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/exascience/jtools/internal"
	"github.com/exascience/jtools/utils"
)

const (
	logLevelFlag  = "log-level"
	logFormatFlag = "log-format"
	logPathFlag   = "log-path"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	config  *viper.Viper
	logger  *zap.Logger
	logFile *internal.LogFile
}

// NewRootCommand returns the jtools command tree. Flags can also be
// set with environment variables prefixed with JTOOLS_, for example
// JTOOLS_LOG_LEVEL or JTOOLS_FILTER_KEEP.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{config: viper.New(), logger: zap.NewNop()}
	a.config.SetEnvPrefix("JTOOLS")
	a.config.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.config.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   utils.ProgramName,
		Short: "Filter name-sorted SAM/BAM/FASTQ files by read name",
		Long: `jtools filters name-sorted SAM, BAM, FASTQ, and FASTA files against a sorted
list of read identifiers, keeping or discarding the matching reads in a single
streaming pass.

See ` + utils.ProgramURL + ` for more information.`,
		Version:           utils.ProgramVersion,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.String(logLevelFlag, "info", "log level: "+strings.Join(internal.LogLevels, ", "))
	flags.String(logFormatFlag, "text", "log format: "+strings.Join(internal.LogFormats, ", "))
	flags.String(logPathFlag, "", "if set, also write the log to a timestamped file under this directory")

	mustBindPFlag(a.config, logLevelFlag, flags.Lookup(logLevelFlag))
	mustBindPFlag(a.config, logFormatFlag, flags.Lookup(logFormatFlag))
	mustBindPFlag(a.config, logPathFlag, flags.Lookup(logPathFlag))

	cmd.AddCommand(newFilterCommand(a), newFilterBatchCommand(a), newSortIDsCommand(a))
	return cmd, a
}

// setup creates the logger, and the log file if requested.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var outputs []zapcore.WriteSyncer
	if path := a.config.GetString(logPathFlag); path != "" {
		logFile, err := internal.CreateLogFile(path, utils.ProgramName, ProgramMessage)
		if err != nil {
			return fmt.Errorf("cannot create log file: %w", err)
		}
		a.logFile = logFile
		outputs = append(outputs, zapcore.AddSync(logFile.File), zapcore.Lock(logFile.Stderr))
		cmd.Root().SetErr(io.MultiWriter(logFile.File, logFile.Stderr))
	}
	logger, err := internal.NewLogger(a.config.GetString(logFormatFlag), a.config.GetString(logLevelFlag), outputs...)
	if err != nil {
		return err
	}
	a.logger = logger
	if a.logFile != nil {
		a.logger.Info("created log file", zap.String("path", a.logFile.Path))
	}
	a.logger.Debug("command line", zap.Strings("args", os.Args))
	return nil
}

func (a *app) close() {
	_ = a.logger.Sync()
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// Execute runs the command named on the command line.
func Execute(ctx context.Context) error {
	cmd, a := newRootCommand()
	defer a.close()
	return cmd.ExecuteContext(ctx)
}
