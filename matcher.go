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
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher turns a shell glob (doublestar syntax, including "**") into an
// include/exclude decision for one entry name. the matcher is
// pluggable; doublestar is the default.
type Matcher interface {
	Match(name, pattern string, caseInsensitive bool) (bool, error)
}

type defaultMatcher struct{}

func (defaultMatcher) Match(name, pattern string, caseInsensitive bool) (bool, error) {
	if caseInsensitive {
		name = strings.ToLower(name)
		pattern = strings.ToLower(pattern)
	}
	return doublestar.Match(pattern, name)
}
