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

// Inflate implements methods 8 (DEFLATE) and 9 (DEFLATE64): fixed, dynamic,
// and stored blocks per RFC 1951 §3.2, extended for INFLATE64's wider
// length-285/distance range when Variant64 is set. The block loop and table
// construction follow Mark Adler's puff.c reference decoder, which is also
// where this package's huffman.Table decode order is grounded.
type Inflate struct {
	Variant64 bool
}

// codeLengthOrder is the permutation in which the 3-bit code-length-alphabet
// lengths are transmitted for a dynamic block.
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

var lenBase = [29]uint32{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258}
var lenExtraBits = [29]uint{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}

var distBaseDeflate = [30]uint32{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577}
var distExtraDeflate = [30]uint{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}

// Deflate64 extends the final length code to 16 extra bits (3..65538) and
// adds two more distance codes reaching a 64 KiB window.
var distBase64 = [32]uint32{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577, 32769, 49153}
var distExtra64 = [32]uint{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13, 14, 14}

// fixedLitLengths/fixedDistLengths are the canonical fixed-block code
// lengths from RFC 1951 §3.2.6. Decode builds their tables lazily, at most
// once per Decode call.
func fixedLitLengths() []int {
	l := make([]int, 288)
	for i := 0; i < 144; i++ {
		l[i] = 8
	}
	for i := 144; i < 256; i++ {
		l[i] = 9
	}
	for i := 256; i < 280; i++ {
		l[i] = 7
	}
	for i := 280; i < 288; i++ {
		l[i] = 8
	}
	return l
}

// fixedDistLengths always spans 32 symbols so the 5-bit code is complete;
// symbols 30 and 31 can never occur in a valid classic stream and are
// rejected by the range check in decodeBlock.
func fixedDistLengths() []int {
	l := make([]int, 32)
	for i := range l {
		l[i] = 5
	}
	return l
}

// ErrIncompleteLiteralTree is fatal: an incomplete literal/length tree
// cannot safely decode any block, unlike an incomplete distance tree (see
// below).
var ErrIncompleteLiteralTree = fmt.Errorf("%w: incomplete literal/length tree", ErrInvalidData)

func (c Inflate) distTables() ([]uint32, []uint, int) {
	if c.Variant64 {
		return distBase64[:], distExtra64[:], 32
	}
	return distBaseDeflate[:], distExtraDeflate[:], 30
}

// lengthTables returns the length base/extra-bits tables for this variant.
// INFLATE64 redefines the final length code (symbol 285) to carry 16 extra
// bits reaching 3..65538 instead of the fixed value 258.
func (c Inflate) lengthTables() ([]uint32, []uint) {
	if !c.Variant64 {
		return lenBase[:], lenExtraBits[:]
	}
	base := lenBase
	extra := lenExtraBits
	base[28] = 3
	extra[28] = 16
	return base[:], extra[:]
}

// Decode runs the block loop until the last-block flag is consumed.
func (c Inflate) Decode(r *bitio.Reader, w *window.Window, params Params) error {
	distBase, distExtraBits, distCount := c.distTables()
	lenBaseTbl, lenExtraTbl := c.lengthTables()

	var fixedLit, fixedDist *huffman.Table
	ensureFixed := func() error {
		if fixedLit != nil {
			return nil
		}
		t, err := huffman.Build(fixedLitLengths())
		if err != nil {
			return fmt.Errorf("inflate: building fixed literal tree: %w", err)
		}
		fixedLit = t
		d, err := huffman.Build(fixedDistLengths())
		if err != nil {
			return fmt.Errorf("inflate: building fixed distance tree: %w", err)
		}
		fixedDist = d
		return nil
	}

	for {
		last, err := r.GetBits(1)
		if err != nil {
			return err
		}
		typ, err := r.GetBits(2)
		if err != nil {
			return err
		}

		switch typ {
		case 0: // stored
			if err := c.decodeStored(r, w); err != nil {
				return err
			}
		case 1: // fixed Huffman
			if err := ensureFixed(); err != nil {
				return err
			}
			if err := c.decodeBlock(r, w, fixedLit, fixedDist, distBase, distExtraBits, lenBaseTbl, lenExtraTbl); err != nil {
				return err
			}
		case 2: // dynamic Huffman
			litTable, distTable, err := c.readDynamicTrees(r, distCount)
			if err != nil {
				return err
			}
			if err := c.decodeBlock(r, w, litTable, distTable, distBase, distExtraBits, lenBaseTbl, lenExtraTbl); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: reserved block type", ErrInvalidData)
		}

		if last == 1 {
			return nil
		}
	}
}

// decodeStored copies a literal (uncompressed) block: after byte-aligning,
// a 16-bit length and its one's-complement must match.
func (c Inflate) decodeStored(r *bitio.Reader, w *window.Window) error {
	r.AlignByte()
	lenLo, err := r.GetBits(16)
	if err != nil {
		return err
	}
	nlen, err := r.GetBits(16)
	if err != nil {
		return err
	}
	if lenLo&0xffff != (^nlen)&0xffff {
		return fmt.Errorf("%w: stored block length/~length mismatch", ErrInvalidData)
	}
	n := int(lenLo)
	var buf [4096]byte
	for n > 0 {
		chunk := len(buf)
		if chunk > n {
			chunk = n
		}
		if _, err := r.Read(buf[:chunk]); err != nil {
			return err
		}
		for _, b := range buf[:chunk] {
			if err := w.EmitLiteral(b); err != nil {
				return err
			}
		}
		n -= chunk
	}
	return nil
}

// readDynamicTrees reads HLIT/HDIST/HCLEN, the code-length alphabet, and
// the HLIT+HDIST length values (with repeat codes 16/17/18), then splits
// them into literal/length and distance trees.
func (c Inflate) readDynamicTrees(r *bitio.Reader, distCount int) (*huffman.Table, *huffman.Table, error) {
	hlit, err := r.GetBits(5)
	if err != nil {
		return nil, nil, err
	}
	hdist, err := r.GetBits(5)
	if err != nil {
		return nil, nil, err
	}
	hclen, err := r.GetBits(4)
	if err != nil {
		return nil, nil, err
	}
	nLit := int(hlit) + 257
	nDist := int(hdist) + 1
	nClen := int(hclen) + 4

	clLengths := make([]int, 19)
	for i := 0; i < nClen; i++ {
		b, err := r.GetBits(3)
		if err != nil {
			return nil, nil, err
		}
		clLengths[codeLengthOrder[i]] = int(b)
	}
	clTable, err := huffman.Build(clLengths)
	if err != nil && err != huffman.ErrIncomplete {
		return nil, nil, fmt.Errorf("inflate: code-length tree: %w", err)
	}

	total := nLit + nDist
	lengths := make([]int, 0, total)
	var prev int
	for len(lengths) < total {
		sym, err := clTable.Decode(r)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case sym < 16:
			lengths = append(lengths, sym)
			prev = sym
		case sym == 16:
			rep, err := r.GetBits(2)
			if err != nil {
				return nil, nil, err
			}
			n := int(rep) + 3
			for i := 0; i < n; i++ {
				lengths = append(lengths, prev)
			}
		case sym == 17:
			rep, err := r.GetBits(3)
			if err != nil {
				return nil, nil, err
			}
			n := int(rep) + 3
			for i := 0; i < n; i++ {
				lengths = append(lengths, 0)
			}
			prev = 0
		case sym == 18:
			rep, err := r.GetBits(7)
			if err != nil {
				return nil, nil, err
			}
			n := int(rep) + 11
			for i := 0; i < n; i++ {
				lengths = append(lengths, 0)
			}
			prev = 0
		default:
			return nil, nil, fmt.Errorf("%w: bad code-length symbol %d", ErrInvalidData, sym)
		}
	}
	if len(lengths) != total {
		return nil, nil, fmt.Errorf("%w: dynamic tree length overrun", ErrInvalidData)
	}

	litLengths := lengths[:nLit]
	distLengths := lengths[nLit:]

	litTable, err := huffman.Build(litLengths)
	if err == huffman.ErrIncomplete {
		return nil, nil, ErrIncompleteLiteralTree
	} else if err != nil {
		return nil, nil, fmt.Errorf("inflate: literal tree: %w", err)
	}

	// Pad a short distance-length vector to distCount entries: a known
	// producer bug emits fewer than the full alphabet for literal-only
	// blocks. An incomplete distance tree is tolerated (a
	// well-known legacy-producer bug); only the literal/length
	// tree's incompleteness is fatal.
	if len(distLengths) < distCount {
		padded := make([]int, distCount)
		copy(padded, distLengths)
		distLengths = padded
	}
	distTable, err := huffman.Build(distLengths)
	if err != nil && err != huffman.ErrIncomplete {
		return nil, nil, fmt.Errorf("inflate: distance tree: %w", err)
	}
	return litTable, distTable, nil
}

// decodeBlock runs the literal/length/distance decode loop for one fixed or
// dynamic block until it reads the end-of-block symbol (256).
func (c Inflate) decodeBlock(r *bitio.Reader, w *window.Window, litTable, distTable *huffman.Table, distBase []uint32, distExtraBits []uint, lenBaseTbl []uint32, lenExtraTbl []uint) error {
	for {
		sym, err := litTable.Decode(r)
		if err != nil {
			return err
		}
		if sym < 256 {
			if err := w.EmitLiteral(byte(sym)); err != nil {
				return err
			}
			continue
		}
		if sym == 256 {
			return nil
		}

		li := sym - 257
		if li < 0 || li >= len(lenBaseTbl) {
			return fmt.Errorf("%w: bad length symbol %d", ErrInvalidData, sym)
		}
		length := lenBaseTbl[li]
		if eb := lenExtraTbl[li]; eb > 0 {
			extra, err := r.GetBits(eb)
			if err != nil {
				return err
			}
			length += extra
		}

		dsym, err := distTable.Decode(r)
		if err != nil {
			return err
		}
		if dsym < 0 || dsym >= len(distBase) {
			return fmt.Errorf("%w: bad distance symbol %d", ErrInvalidData, dsym)
		}
		distance := distBase[dsym]
		if eb := distExtraBits[dsym]; eb > 0 {
			extra, err := r.GetBits(eb)
			if err != nil {
				return err
			}
			distance += extra
		}
		if distance == 0 || distance > w.Size() {
			return fmt.Errorf("%w: distance %d exceeds window", ErrInvalidData, distance)
		}
		if err := w.CopyMatch(distance, length); err != nil {
			return err
		}
	}
}
