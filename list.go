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
	"fmt"
	"io"

	"github.com/jopamo/infozip-utils/codec"
	"github.com/rodaine/table"
)

// PrintListing renders entries as an aligned table to w, in the style of
// a classic archiver listing: one row per member, compression
// method named rather than numbered, and a compression ratio column.
func PrintListing(w io.Writer, entries []ListEntry) {
	tbl := table.New("method", "date", "time", "compressed", "uncompressed", "ratio", "name").WithWriter(w)
	for _, e := range entries {
		ratio := "0.0%"
		if e.UncompressedSize > 0 {
			ratio = fmt.Sprintf("%.1f%%", (1-float64(e.CompressedSize)/float64(e.UncompressedSize))*100)
		}
		tbl.AddRow(
			codec.Method(e.Method).String(),
			e.ModTime.Format("2006-01-02"),
			e.ModTime.Format("15:04:05"),
			e.CompressedSize,
			e.UncompressedSize,
			ratio,
			e.Name,
		)
	}
	tbl.Print()
}

// List returns archivePath's central directory as ListEntry values without
// decoding any payload, for callers that want the data rather than a
// printed table.
func List(archivePath string, opts Options) ([]ListEntry, error) {
	opts.Mode = ModeList
	result, err := Run(archivePath, opts)
	if err != nil {
		return result.Entries, err
	}
	return result.Entries, nil
}
