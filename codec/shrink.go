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
	"errors"
	"fmt"

	"github.com/jopamo/infozip-utils/bitio"
	"github.com/jopamo/infozip-utils/window"
)

// Shrink implements method 1: LZW over a fixed 8192-code dictionary with
// partial clear.
type Shrink struct{}

const (
	shrinkInitBits = 9
	shrinkMaxBits  = 13
	shrinkTableSz  = 1 << shrinkMaxBits // 8192
	shrinkFirstEnt = 257                // 256 is the control-code escape
	shrinkClearSig = 256
)

// ErrStackOverflow is a hard error: the reconstruction stack for a single
// code exceeded the table size, which can only happen on a corrupt or
// adversarial stream (a legitimate chain is bounded by shrinkTableSz).
var ErrStackOverflow = errors.New("codec: shrink reconstruction stack overflow")

// Decode implements the LZW-with-partial-clear algorithm. Table entries
// above 255 record a parent code and the single byte appended when that
// entry was created; decoding a code walks the parent chain onto a stack
// and then emits it in reverse (prefix order).
func (Shrink) Decode(r *bitio.Reader, w *window.Window, params Params) error {
	var parent [shrinkTableSz]int32
	var suffix [shrinkTableSz]byte
	var isFree [shrinkTableSz]bool

	for i := range parent {
		parent[i] = -1
		isFree[i] = i >= shrinkFirstEnt
	}

	nBits := uint(shrinkInitBits)
	freeEnt := shrinkFirstEnt
	nextFree := func() int {
		for freeEnt < shrinkTableSz && !isFree[freeEnt] {
			freeEnt++
		}
		return freeEnt
	}

	var stack [shrinkTableSz]byte
	reconstruct := func(code int) ([]byte, error) {
		sp := 0
		for code >= shrinkFirstEnt {
			if sp >= len(stack) {
				return nil, ErrStackOverflow
			}
			stack[sp] = suffix[code]
			sp++
			code = int(parent[code])
			if code < 0 {
				return nil, fmt.Errorf("%w: broken parent chain", ErrInvalidData)
			}
		}
		if sp >= len(stack) {
			return nil, ErrStackOverflow
		}
		stack[sp] = byte(code)
		sp++
		// stack holds bytes in reverse emission order; reverse in place.
		out := make([]byte, sp)
		for i := 0; i < sp; i++ {
			out[i] = stack[sp-1-i]
		}
		return out, nil
	}

	partialClear := func() {
		var hasChild [shrinkTableSz]bool
		for code := shrinkFirstEnt; code < shrinkTableSz; code++ {
			if isFree[code] {
				continue
			}
			if p := parent[code]; p >= shrinkFirstEnt {
				hasChild[p] = true
			}
		}
		for code := shrinkFirstEnt; code < shrinkTableSz; code++ {
			if !isFree[code] && !hasChild[code] {
				isFree[code] = true
				parent[code] = -1
			}
		}
		freeEnt = shrinkFirstEnt
	}

	oldcode := -1
	var finalByte byte
	remaining := params.UncompressedSize

	for remaining > 0 {
		code32, err := r.GetBits(nBits)
		if err != nil {
			return err
		}
		code := int(code32)

		if code == shrinkClearSig {
			ctl32, err := r.GetBits(nBits)
			if err != nil {
				return err
			}
			switch ctl32 {
			case 1:
				if nBits < shrinkMaxBits {
					nBits++
				}
			case 2:
				partialClear()
				oldcode = -1
			default:
				return fmt.Errorf("%w: shrink control code %d", ErrInvalidData, ctl32)
			}
			continue
		}

		var str []byte
		if code < shrinkFirstEnt {
			str = []byte{byte(code)}
		} else if code < shrinkTableSz && !isFree[code] {
			s, err := reconstruct(code)
			if err != nil {
				return err
			}
			str = s
		} else if oldcode >= 0 && code == nextFree() {
			// KwKwK case: the just-allocated code was referenced before it
			// was written. The emitted string is prefix(oldcode) followed
			// by the first byte of prefix(oldcode) again.
			prefixStr, err := reconstruct(oldcode)
			if err != nil {
				return err
			}
			str = append(append([]byte{}, prefixStr...), prefixStr[0])
		} else {
			return fmt.Errorf("%w: shrink code %d out of sequence", ErrInvalidData, code)
		}

		for _, b := range str {
			if err := w.EmitLiteral(b); err != nil {
				return err
			}
		}
		remaining -= int64(len(str))
		finalByte = str[0]

		if oldcode >= 0 {
			slot := nextFree()
			if slot < shrinkTableSz {
				parent[slot] = int32(oldcode)
				suffix[slot] = finalByte
				isFree[slot] = false
				freeEnt = slot + 1
			}
		}
		oldcode = code
	}
	return nil
}
