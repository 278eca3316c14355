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
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// deferredSymlink is a placeholder awaiting link creation: extraction
// records the link's target text and declared length but does not create
// the link until every regular file has materialized, so a symlink whose
// target is a sibling member that hasn't been written yet still resolves.
type deferredSymlink struct {
	linkName     string // path of the symlink itself, relative to Dest
	target       string // link target text, as stored in the member's bytes
	declaredSize int64
}

// symlinkQueue collects deferred symlinks during extraction for a single
// driver-held queue, drained after the last CD batch.
type symlinkQueue struct {
	entries []deferredSymlink
}

func newSymlinkQueue() *symlinkQueue { return &symlinkQueue{} }

func (q *symlinkQueue) add(linkName, target string, declaredSize int64) {
	q.entries = append(q.entries, deferredSymlink{linkName: linkName, target: target, declaredSize: declaredSize})
}

// drain creates every queued symlink under dest, deepest link-path first so
// a symlink nested under another deferred symlink's directory still has a
// parent to land in.
func (q *symlinkQueue) drain(dest string, diag Diagnostics) {
	sort.Slice(q.entries, func(i, j int) bool {
		return strings.Count(q.entries[i].linkName, "/") > strings.Count(q.entries[j].linkName, "/")
	})
	for _, e := range q.entries {
		if int64(len(e.target)) != e.declaredSize {
			diag.Warnf("symlink %s: target length mismatch (declared %d, got %d)", e.linkName, e.declaredSize, len(e.target))
		}
		full := filepath.Join(dest, filepath.FromSlash(e.linkName))
		if err := os.MkdirAll(filepath.Dir(full), 0o777); err != nil {
			diag.Warnf("symlink %s: mkdir parent: %v", e.linkName, err)
			continue
		}
		_ = os.Remove(full) // replace an existing placeholder file, if any
		if err := os.Symlink(e.target, full); err != nil {
			diag.Warnf("symlink %s -> %s: %v", e.linkName, e.target, err)
		}
	}
}
