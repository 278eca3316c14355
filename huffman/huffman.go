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

// Package huffman builds and decodes canonical Huffman codes shared by the
// INFLATE, INFLATE64, and IMPLODE codecs. Construction follows the
// length-histogram / first-code-offset / canonical-assignment algorithm
// described by RFC 1951 §3.2.2; decoding walks the canonical table one bit
// at a time, which keeps the LSB-first bit order of the underlying stream
// correct without needing to bit-reverse a flat lookup table.
package huffman

import (
	"errors"

	"github.com/jopamo/infozip-utils/bitio"
)

// ErrOversubscribed indicates the code lengths claim more codes than the
// Kraft budget allows for their lengths; always fatal.
var ErrOversubscribed = errors.New("huffman: over-subscribed code lengths")

// ErrIncomplete indicates the code set does not fill its Kraft budget.
// Some callers tolerate this (e.g. a known producer bug in distance trees);
// others must treat it as fatal (e.g. the literal/length tree). The
// asymmetry is a compatibility decision made at the call site, not here.
var ErrIncomplete = errors.New("huffman: incomplete code set")

// ErrInvalidCode is returned by Decode when the bits read do not resolve to
// any symbol in an incomplete code's unused code space.
var ErrInvalidCode = errors.New("huffman: invalid code")

// maxSupportedBits bounds table construction; IMPLODE is the deepest user
// at up to 16-bit codes (DEFLATE/DEFLATE64 stop at 15), well under this.
const maxSupportedBits = 32

// Table is a canonical Huffman decode table built from a vector of code
// lengths, one entry per symbol (0 meaning the symbol is unused).
type Table struct {
	count  []int32 // count[length] = number of codes of that length
	symbol []int32 // symbols, sorted by code length then by symbol order
	maxLen uint
}

// Build constructs a canonical Huffman table from lengths[sym] = code
// length of sym (0 = absent). It returns (table, ErrIncomplete) for a code
// set that doesn't fill its Kraft budget — the table is still usable for
// codes within the assigned space — and (nil, ErrOversubscribed) for a
// code set that claims too many codes, which is never usable.
func Build(lengths []int) (*Table, error) {
	maxLen := uint(0)
	for _, l := range lengths {
		if l < 0 || uint(l) > maxSupportedBits {
			return nil, ErrOversubscribed
		}
		if uint(l) > maxLen {
			maxLen = uint(l)
		}
	}
	if maxLen == 0 {
		// No codes at all: a well-formed but empty table. Any decode fails.
		return &Table{count: make([]int32, 1), symbol: nil, maxLen: 0}, ErrIncomplete
	}

	count := make([]int32, maxLen+1)
	for _, l := range lengths {
		count[l]++
	}

	// Check for an over-subscribed or incomplete set of lengths.
	left := int32(1)
	for length := uint(1); length <= maxLen; length++ {
		left <<= 1
		left -= count[length]
		if left < 0 {
			return nil, ErrOversubscribed
		}
	}
	incomplete := left > 0

	// Offsets into the symbol table for each length, for sorting.
	offs := make([]int32, maxLen+2)
	for length := uint(1); length < maxLen; length++ {
		offs[length+1] = offs[length] + count[length]
	}

	n := int32(0)
	for _, l := range lengths {
		if l != 0 {
			n++
		}
	}
	symbol := make([]int32, n)
	for sym, l := range lengths {
		if l != 0 {
			symbol[offs[l]] = int32(sym)
			offs[l]++
		}
	}

	t := &Table{count: count, symbol: symbol, maxLen: maxLen}
	if incomplete {
		return t, ErrIncomplete
	}
	return t, nil
}

// Decode reads one canonical code from br and returns the symbol it names.
// Bits are consumed LSB-first as they arrive; no table reversal is needed
// because the code value is built incrementally in the same order RFC 1951
// canonical assignment expects (cf. puff.c's decode()).
func (t *Table) Decode(br *bitio.Reader) (int, error) {
	var code, first, index int32
	for length := uint(1); length <= t.maxLen; length++ {
		bit, err := br.GetBits(1)
		if err != nil {
			return 0, err
		}
		code |= int32(bit)
		count := t.count[length]
		if code-count < first {
			return int(t.symbol[index+(code-first)]), nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, ErrInvalidCode
}

// MaxLen reports the longest code length present in the table.
func (t *Table) MaxLen() uint { return t.maxLen }
