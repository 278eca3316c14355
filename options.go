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

// Mode selects what Run does with each surviving entry.
type Mode int

const (
	// ModeExtract materializes members to Dest via Sink.
	ModeExtract Mode = iota
	// ModeTest decodes and CRC-checks members without writing them.
	ModeTest
	// ModeList reports member metadata without decoding payloads.
	ModeList
)

// Options configures a run of the central-directory driver, passed by value
// rather than held in a package-level global.
type Options struct {
	Mode Mode

	// Dest is the destination directory for ModeExtract; ignored otherwise.
	Dest string

	// Include/Exclude are shell-glob patterns (doublestar syntax) applied
	// to each entry's name; an entry must match at least one Include
	// pattern (if any are given) and no Exclude pattern.
	Include []string
	Exclude []string
	// CaseInsensitiveMatch lower-cases both the pattern and the candidate
	// name before matching.
	CaseInsensitiveMatch bool

	Matcher         Matcher
	Sink            Sink
	PasswordProvider PasswordProvider
	Overwrite       OverwritePolicy

	Diagnostics Diagnostics

	// BatchSize overrides DIR_BLKSIZ (the number of CD entries parsed
	// before the driver dispatches extraction for the batch). Zero means
	// the historical default.
	BatchSize int
}

const defaultBatchSize = 64

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return defaultBatchSize
}

func (o Options) matcher() Matcher {
	if o.Matcher != nil {
		return o.Matcher
	}
	return defaultMatcher{}
}

func (o Options) sink() Sink {
	if o.Sink != nil {
		return o.Sink
	}
	fs := NewFilesystemSink(o.Dest)
	fs.Policy = o.overwrite()
	return fs
}

func (o Options) overwrite() OverwritePolicy {
	if o.Overwrite != nil {
		return o.Overwrite
	}
	return NeverOverwrite{}
}

func (o Options) passwordProvider() PasswordProvider {
	if o.PasswordProvider != nil {
		return o.PasswordProvider
	}
	return &StdinPasswordProvider{}
}
