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
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// IsStdStream reports whether a filename denotes standard input or
// output.
func IsStdStream(filename string) bool {
	switch filename {
	case "-", "/dev/stdin", "/dev/stdout":
		return true
	default:
		return false
	}
}

// CheckExist returns an error if a file does not exist or cannot be
// accessed.
func CheckExist(filename string) error {
	if filename == "" {
		return fmt.Errorf("missing filename")
	}
	if IsStdStream(filename) {
		return nil
	}
	if _, err := os.Stat(filename); err != nil {
		switch {
		case os.IsNotExist(err):
			return fmt.Errorf("file %v does not exist", filename)
		case os.IsPermission(err):
			return fmt.Errorf("no permission to read file %v", filename)
		default:
			return fmt.Errorf("%w when trying to access file %v", err, filename)
		}
	}
	return nil
}

// CheckCreate returns an error if a file cannot be created. Missing
// directories are created on the way.
func CheckCreate(filename string) error {
	if filename == "" {
		return fmt.Errorf("missing filename")
	}
	if IsStdStream(filename) {
		return nil
	}
	if _, err := os.Stat(filename); err == nil {
		// Assume that the file has been written by previous runs, and can be overwritten.
		return nil
	}
	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err == nil {
		err = os.WriteFile(filename, nil, 0666)
	}
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("no permission to create file %v", filename)
		}
		return fmt.Errorf("%w when trying to create file %v", err, filename)
	}
	return os.Remove(filename)
}

// LogFilename returns a timestamped path for a log file, relative to
// a log directory.
func LogFilename(program string, t time.Time) string {
	zone, _ := t.Zone()
	return fmt.Sprintf("logs/%v/%v-%d-%02d-%02d-%02d-%02d-%02d-%09d-%v.log", program, program, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), zone)
}

// A LogFile captures everything written to stderr, while the original
// stderr stays available for console output.
type LogFile struct {
	*os.File
	Path   string
	Stderr *os.File
	orgFd  int
}

// CreateLogFile creates a timestamped log file under dir and redirects
// stderr into it. The first line of the file is the given message.
func CreateLogFile(dir, program, message string) (*LogFile, error) {
	if dir == "" {
		dir = os.Getenv("HOME")
	}
	path := filepath.Join(dir, LogFilename(program, time.Now()))
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintln(f, message); err != nil {
		_ = f.Close()
		return nil, err
	}

	orgStderr, err := unix.Dup(2)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		_ = unix.Close(orgStderr)
		_ = f.Close()
		return nil, err
	}
	return &LogFile{
		File:   f,
		Path:   path,
		Stderr: os.NewFile(uintptr(orgStderr), "/dev/stderr"),
		orgFd:  orgStderr,
	}, nil
}

// Close restores the original stderr and closes the log file.
func (l *LogFile) Close() error {
	err := unix.Dup2(l.orgFd, 2)
	if nerr := l.Stderr.Close(); err == nil {
		err = nerr
	}
	if nerr := l.File.Close(); err == nil {
		err = nerr
	}
	return err
}
