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

package internal

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevels lists the accepted values for the --log-level flag.
var LogLevels = []string{"none", "debug", "info", "warn", "error", "panic", "fatal"}

// LogFormats lists the accepted values for the --log-format flag.
var LogFormats = []string{"text", "json"}

func parseLevel(logLevel string) (zapcore.Level, error) {
	switch logLevel {
	case "debug":
		return zap.DebugLevel, nil
	case "info":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	case "panic":
		return zap.PanicLevel, nil
	case "fatal":
		return zap.FatalLevel, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", logLevel)
	}
}

// NewLogger creates a logger that writes to all given outputs, or to
// os.Stderr if there are none. The level "none" yields a logger that
// discards everything.
func NewLogger(logFormat, logLevel string, outputs ...zapcore.WriteSyncer) (*zap.Logger, error) {
	if logLevel == "none" {
		return zap.NewNop(), nil
	}
	level, err := parseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch logFormat {
	case "text":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(cfg)
	default:
		return nil, fmt.Errorf("unknown log format: %s", logFormat)
	}

	if len(outputs) == 0 {
		outputs = []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	}
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(outputs...), zap.NewAtomicLevelAt(level))
	return zap.New(core), nil
}
