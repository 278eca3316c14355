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
	"github.com/jopamo/infozip-utils/cover"
)

// Diagnostics is the narrow logging interface every component is handed
// instead of importing a logging framework directly. Callers wire this to
// whatever they already use.
type Diagnostics interface {
	Warnf(format string, args ...any)
}

// nopDiagnostics discards everything; the zero value of Context is usable.
type nopDiagnostics struct{}

func (nopDiagnostics) Warnf(string, ...any) {}

// Context threads the options, diagnostics sink, overlap cover, and
// deferred-symlink queue through the driver and extractor. No package in
// this module holds mutable package-level state.
type Context struct {
	Options     Options
	Diagnostics Diagnostics
	Cover       *cover.Cover
	Symlinks    *symlinkQueue

	// Sink is resolved once per run (not per entry) so a default
	// FilesystemSink accumulates its deferred-directory timestamp map
	// across every member instead of losing it on each call.
	Sink Sink
}

// NewContext builds a Context ready for a single archive run.
func NewContext(opts Options) *Context {
	d := opts.Diagnostics
	if d == nil {
		d = nopDiagnostics{}
	}
	return &Context{
		Options:     opts,
		Diagnostics: d,
		Cover:       cover.New(),
		Symlinks:    newSymlinkQueue(),
		Sink:        opts.sink(),
	}
}
