// Copyright (c) 2026 The infozip-utils Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of infozip-utils.
//
// infozip-utils is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// infozip-utils is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with infozip-utils.  If not, see <https://www.gnu.org/licenses/>.

package infozip

import (
	"errors"

	"github.com/jopamo/infozip-utils/bitio"
	"github.com/jopamo/infozip-utils/codec"
	"github.com/jopamo/infozip-utils/crypt"
	"github.com/jopamo/infozip-utils/huffman"
	"github.com/jopamo/infozip-utils/window"
)

// ExitCode mirrors the legacy exit-status taxonomy; the numeric values are
// part of the boundary contract so callers that shell out or
// script against this library's CLI see the historical codes.
type ExitCode int

const (
	ExitOK       ExitCode = 0
	ExitWarn     ExitCode = 1
	ExitErr      ExitCode = 2
	ExitBadErr   ExitCode = 3
	ExitMem      ExitCode = 4
	ExitBadZip   ExitCode = 9
	ExitParam    ExitCode = 10
	ExitFind     ExitCode = 11
	ExitBomb     ExitCode = 12
	ExitDisk     ExitCode = 50
	ExitCtrlC    ExitCode = 80
	ExitUnsup    ExitCode = 81
	ExitBadPwd   ExitCode = 82
)

// Sentinel error kinds. Components wrap one of these with %w so that
// errors.Is works end to end regardless of how much context a call site
// adds; nothing in this package carries an in-band numeric code directly.
var (
	// Structural
	ErrTruncated          = errors.New("unzip: truncated archive")
	ErrBadSignature       = errors.New("unzip: bad signature")
	ErrBadHeader          = errors.New("unzip: bad header")
	ErrInconsistentExtra  = errors.New("unzip: inconsistent extra field")
	ErrUnsupportedMethod  = errors.New("unzip: unsupported compression method")
	ErrUnsupportedVersion = errors.New("unzip: unsupported version needed to extract")
	ErrBadDescriptor      = errors.New("unzip: bad data descriptor")

	// Content
	ErrBadCRC            = errors.New("unzip: CRC-32 mismatch")
	ErrInvalidCompressed = errors.New("unzip: invalid compressed data")
	ErrIncompleteHuffman = errors.New("unzip: incomplete Huffman tree")

	// Security
	ErrBomb      = errors.New("unzip: overlapping claim (zip bomb)")
	ErrBadEACRC  = errors.New("unzip: extended-attribute CRC mismatch")
	ErrEFTrunc   = errors.New("unzip: truncated extra field")

	// Crypto
	ErrEncryptedUnsupported = errors.New("unzip: encrypted entries not supported")
	ErrWrongPassword        = errors.New("unzip: wrong password")
	ErrNoPassword           = errors.New("unzip: no password available")

	// Resource
	ErrOOM        = errors.New("unzip: out of memory")
	ErrDiskFull   = errors.New("unzip: disk full")
	ErrCancelled  = errors.New("unzip: cancelled")

	// Filter
	ErrPatternUnmatched = errors.New("unzip: include pattern matched nothing")
)

// severityOf ranks a sentinel for the "worst error so far" rule: the driver keeps the maximum severity seen across all entries and
// reports it as the run's ExitCode. Unrecognized errors default to ExitErr.
func severityOf(err error) ExitCode {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCancelled), errors.Is(err, window.ErrCancelled):
		return ExitCtrlC
	case errors.Is(err, ErrBomb):
		return ExitBomb
	case errors.Is(err, ErrOOM):
		return ExitMem
	case errors.Is(err, ErrDiskFull), errors.Is(err, window.ErrDiskFull):
		return ExitDisk
	case errors.Is(err, ErrWrongPassword), errors.Is(err, ErrNoPassword),
		errors.Is(err, crypt.ErrWrongPassword), errors.Is(err, crypt.ErrNoPassword):
		return ExitBadPwd
	case errors.Is(err, ErrUnsupportedMethod), errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrEncryptedUnsupported), errors.Is(err, codec.ErrUnsupportedMethod):
		return ExitUnsup
	case errors.Is(err, ErrPatternUnmatched):
		return ExitFind
	case errors.Is(err, ErrBadSignature), errors.Is(err, ErrBadHeader),
		errors.Is(err, ErrTruncated), errors.Is(err, bitio.ErrTruncated):
		return ExitBadZip
	case errors.Is(err, codec.ErrInvalidData), errors.Is(err, huffman.ErrOversubscribed),
		errors.Is(err, ErrBadCRC), errors.Is(err, ErrInvalidCompressed):
		return ExitErr
	default:
		return ExitErr
	}
}

// worstError accumulates the highest-severity error seen so far, per the
// driver's monotone rule. The zero value reports ExitOK.
type worstError struct {
	err      error
	severity ExitCode
}

func (w *worstError) note(err error) {
	if err == nil {
		return
	}
	if s := severityOf(err); s > w.severity {
		w.severity = s
		w.err = err
	}
}

// warn records err at warning severity regardless of what severityOf
// would rank it, for conditions the run tolerates.
func (w *worstError) warn(err error) {
	if err == nil {
		return
	}
	if ExitWarn > w.severity {
		w.severity = ExitWarn
		w.err = err
	}
}

func (w *worstError) code() ExitCode { return w.severity }
func (w *worstError) cause() error   { return w.err }
