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
	"fmt"

	"github.com/jopamo/infozip-utils/bitio"
	"github.com/jopamo/infozip-utils/huffman"
	"github.com/jopamo/infozip-utils/window"
)

// Implode implements method 6: literal/length/distance Huffman trees over a
// 4 KiB or 8 KiB logical window.
type Implode struct{}

// cpLen2/cpLen3 are the base match lengths for the 64-symbol length
// alphabet; cpLen2 is used when literals are raw bytes (min match 2),
// cpLen3 when literals are Huffman-coded (min match 3).
var cpLen2 = [64]uint32{
	2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33,
	34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63, 64, 65,
}
var cpLen3 = [64]uint32{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34,
	35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63, 64, 65, 66,
}

// lenExtra gives the extra bits read after the length symbol; only the
// last of the 64 symbols (the overflow bucket) carries any.
var lenExtra = func() [64]uint {
	var e [64]uint
	e[63] = 8
	return e
}()

// cpDist4/cpDist8 are the base distances for the 64-symbol distance
// alphabet under a 4 KiB or 8 KiB logical window.
var cpDist4 = [64]uint32{
	1, 65, 129, 193, 257, 321, 385, 449, 513, 577, 641, 705, 769, 833, 897, 961,
	1025, 1089, 1153, 1217, 1281, 1345, 1409, 1473, 1537, 1601, 1665, 1729, 1793, 1857, 1921, 1985,
	2049, 2113, 2177, 2241, 2305, 2369, 2433, 2497, 2561, 2625, 2689, 2753, 2817, 2881, 2945, 3009,
	3073, 3137, 3201, 3265, 3329, 3393, 3457, 3521, 3585, 3649, 3713, 3777, 3841, 3905, 3969, 4033,
}
var cpDist8 = [64]uint32{
	1, 129, 257, 385, 513, 641, 769, 897, 1025, 1153, 1281, 1409, 1537, 1665, 1793, 1921,
	2049, 2177, 2305, 2433, 2561, 2689, 2817, 2945, 3073, 3201, 3329, 3457, 3585, 3713, 3841, 3969,
	4097, 4225, 4353, 4481, 4609, 4737, 4865, 4993, 5121, 5249, 5377, 5505, 5633, 5761, 5889, 6017,
	6145, 6273, 6401, 6529, 6657, 6785, 6913, 7041, 7169, 7297, 7425, 7553, 7681, 7809, 7937, 8065,
}

// distExtra is all zeros: the distance alphabet's low bits are read
// directly from the stream (dlowBits of them), not as per-symbol extra
// bits.
var distExtra [64]uint

// getTree reads n code lengths from the byte stream using the historic
// run-length scheme: a byte "count-1" of (bits,count) pairs, then each pair
// byte encodes (bits_per_code-1) in the low nibble and (symbols_with_that_
// width - 1) in the high nibble.
func getTree(r *bitio.Reader, n int) ([]int, error) {
	var hdr [1]byte
	if _, err := r.Read(hdr[:]); err != nil {
		return nil, err
	}
	pairs := int(hdr[0]) + 1

	lengths := make([]int, n)
	k := 0
	for p := 0; p < pairs; p++ {
		var b [1]byte
		if _, err := r.Read(b[:]); err != nil {
			return nil, err
		}
		bits := int(b[0]&0x0f) + 1
		count := int(b[0]>>4) + 1
		if k+count > n {
			return nil, fmt.Errorf("%w: implode tree overflow", ErrInvalidData)
		}
		for i := 0; i < count; i++ {
			lengths[k] = bits
			k++
		}
	}
	if k != n {
		return nil, fmt.Errorf("%w: implode tree short read (%d of %d)", ErrInvalidData, k, n)
	}
	return lengths, nil
}

// decodeWithExtra decodes one symbol from t and adds any extra bits per the
// base/extra tables, matching the historic huft_build behavior of folding
// extra-bit consumption into a single table traversal.
func decodeWithExtra(r *bitio.Reader, t *huffman.Table, base []uint32, extra []uint) (uint32, error) {
	sym, err := t.Decode(r)
	if err != nil {
		return 0, err
	}
	if sym < 0 || sym >= len(base) {
		return 0, fmt.Errorf("%w: implode symbol %d out of range", ErrInvalidData, sym)
	}
	v := base[sym]
	if e := extra[sym]; e > 0 {
		bits, err := r.GetBits(e)
		if err != nil {
			return 0, err
		}
		v += bits
	}
	return v, nil
}

// Decode implements the IMPLODE algorithm: three Huffman trees read from
// the stream header (literal tree only when params.ImplodeLiteralTree()),
// then a 1-bit-flag decode loop of literals and length/distance matches.
func (Implode) Decode(r *bitio.Reader, w *window.Window, params Params) error {
	hasLit := params.ImplodeLiteralTree()
	var litTable *huffman.Table

	if hasLit {
		lens, err := getTree(r, 256)
		if err != nil {
			return err
		}
		t, err := huffman.Build(lens)
		if err != nil && err != huffman.ErrIncomplete {
			return fmt.Errorf("implode literal tree: %w", err)
		}
		litTable = t
	}

	lenLens, err := getTree(r, 64)
	if err != nil {
		return err
	}
	lenBase := cpLen2[:]
	if hasLit {
		lenBase = cpLen3[:]
	}
	lenTable, err := huffman.Build(lenLens)
	if err != nil && err != huffman.ErrIncomplete {
		return fmt.Errorf("implode length tree: %w", err)
	}

	distLens, err := getTree(r, 64)
	if err != nil {
		return err
	}
	distBase := cpDist4[:]
	dlowBits := uint(6)
	if params.GPFlag&0x02 != 0 {
		distBase = cpDist8[:]
		dlowBits = 7
	}
	distTable, err := huffman.Build(distLens)
	if err != nil && err != huffman.ErrIncomplete {
		return fmt.Errorf("implode distance tree: %w", err)
	}

	remaining := params.UncompressedSize
	for remaining > 0 {
		flag, err := r.GetBits(1)
		if err != nil {
			return err
		}
		if flag == 1 {
			var b byte
			if hasLit {
				sym, err := litTable.Decode(r)
				if err != nil {
					return err
				}
				b = byte(sym)
			} else {
				v, err := r.GetBits(8)
				if err != nil {
					return err
				}
				b = byte(v)
			}
			if err := w.EmitLiteral(b); err != nil {
				return err
			}
			remaining--
			continue
		}

		dlow, err := r.GetBits(dlowBits)
		if err != nil {
			return err
		}
		distHigh, err := decodeWithExtra(r, distTable, distBase, distExtra[:])
		if err != nil {
			return err
		}
		distance := dlow + distHigh

		length, err := decodeWithExtra(r, lenTable, lenBase, lenExtra[:])
		if err != nil {
			return err
		}

		if distance == 0 || distance > w.Size() {
			return fmt.Errorf("%w: implode distance %d exceeds window", ErrInvalidData, distance)
		}
		if int64(length) > remaining {
			length = uint32(remaining)
		}
		if err := w.CopyMatch(distance, length); err != nil {
			return err
		}
		remaining -= int64(length)
	}
	return nil
}
