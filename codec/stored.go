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

package codec

import (
	"github.com/jopamo/infozip-utils/bitio"
	"github.com/jopamo/infozip-utils/window"
)

// Stored is the byte-for-byte pass-through codec (compression method 0).
type Stored struct{}

// Decode copies UncompressedSize bytes from r to w unchanged, in chunks
// bounded by the window size so the sink sees them in wsize-sized flushes.
func (Stored) Decode(r *bitio.Reader, w *window.Window, params Params) error {
	remaining := params.UncompressedSize
	var buf [4096]byte
	for remaining > 0 {
		n := int64(len(buf))
		if n > remaining {
			n = remaining
		}
		if _, err := r.Read(buf[:n]); err != nil {
			return err
		}
		for _, b := range buf[:n] {
			if err := w.EmitLiteral(b); err != nil {
				return err
			}
		}
		remaining -= n
	}
	return nil
}
