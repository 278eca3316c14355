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

// Package bitio provides a buffered random-access byte view and an LSB-first
// bit view over the same underlying cursor, as used by the legacy ZIP
// decompression codecs (SHRINK, IMPLODE, INFLATE/INFLATE64).
package bitio

import (
	"errors"
	"fmt"
	"io"
)

// inBufSize is the size of the internal read buffer, large enough to keep
// refill frequency low without pinning large archives in memory.
const inBufSize = 32 * 1024

// ErrTruncated is returned when the stream ends while bits or bytes are
// still required.
var ErrTruncated = errors.New("bitio: truncated stream")

// Reader presents byte and bit views over an io.ReaderAt. Byte reads and bit
// reads share one logical cursor: after any codec finishes, call Reconcile
// to fold any buffered-but-unconsumed bits back into the byte position.
type Reader struct {
	r    io.ReaderAt
	size int64 // total addressable length, or -1 if unknown

	pos int64 // absolute position of the next unread byte

	buf      [inBufSize]byte
	bufStart int64
	bufLen   int

	acc   uint32 // bit accumulator, LSB-first
	avail uint   // number of valid bits in acc
}

// NewReader creates a bit/byte reader starting at offset 0. size bounds the
// readable region (pass -1 if unknown, e.g. an unbounded stream).
func NewReader(r io.ReaderAt, size int64) *Reader {
	return &Reader{r: r, size: size, bufStart: -1}
}

// Tell returns the logical byte cursor, ignoring any buffered bits.
func (r *Reader) Tell() int64 { return r.pos }

// Seek sets the absolute byte position and discards any buffered bits.
func (r *Reader) Seek(off int64) {
	r.pos = off
	r.acc = 0
	r.avail = 0
}

// Reconcile returns the logical byte cursor accounting for residual bits
// held in the bit accumulator: tell() - (k >> 3) per the bit-reader
// contract.
func (r *Reader) Reconcile() int64 {
	return r.pos - int64(r.avail>>3)
}

// UsedSize computes used_csize = declared_csize - remaining_csize - (k>>3),
// the figure surfaced on codec length-mismatch errors.
func (r *Reader) UsedSize(declaredCsize, remainingCsize int64) int64 {
	return declaredCsize - remainingCsize - int64(r.avail>>3)
}

// fillBuf ensures the internal buffer covers r.pos, refilling from the
// backing reader if necessary. It returns ErrTruncated at end of stream.
func (r *Reader) fillBuf() error {
	if r.bufStart >= 0 && r.pos >= r.bufStart && r.pos < r.bufStart+int64(r.bufLen) {
		return nil
	}
	want := r.buf[:]
	if r.size >= 0 {
		if r.pos >= r.size {
			return fmt.Errorf("%w: %w", ErrTruncated, io.EOF)
		}
		if rem := r.size - r.pos; rem < int64(len(want)) {
			want = want[:rem]
		}
	}
	n, err := r.r.ReadAt(want, r.pos)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	r.bufStart = r.pos
	r.bufLen = n
	return nil
}

// readByte returns the next byte from the stream, advancing the cursor.
func (r *Reader) readByte() (byte, error) {
	if err := r.fillBuf(); err != nil {
		return 0, err
	}
	b := r.buf[r.pos-r.bufStart]
	r.pos++
	return b, nil
}

// Read fills dst with up to len(dst) bytes from the current position. Any
// buffered bits are discarded first (byte view flushes the bit view).
func (r *Reader) Read(dst []byte) (int, error) {
	r.acc = 0
	r.avail = 0
	for n := 0; n < len(dst); {
		if err := r.fillBuf(); err != nil {
			return n, err
		}
		avail := r.bufLen - int(r.pos-r.bufStart)
		want := len(dst) - n
		if want > avail {
			want = avail
		}
		copy(dst[n:n+want], r.buf[r.pos-r.bufStart:r.pos-r.bufStart+int64(want)])
		r.pos += int64(want)
		n += want
	}
	return len(dst), nil
}

// NeedBits ensures at least n bits are available in the accumulator,
// shifting bytes in LSB-first, 8 bits per byte, in stream order.
func (r *Reader) NeedBits(n uint) error {
	for r.avail < n {
		b, err := r.readByte()
		if err != nil {
			return err
		}
		r.acc |= uint32(b) << r.avail
		r.avail += 8
	}
	return nil
}

// PeekBits returns the low n bits of the accumulator without consuming them.
// Caller must have called NeedBits(n) first.
func (r *Reader) PeekBits(n uint) uint32 {
	if n == 0 {
		return 0
	}
	return r.acc & ((1 << n) - 1)
}

// DumpBits discards the low n bits of the accumulator.
func (r *Reader) DumpBits(n uint) {
	r.acc >>= n
	r.avail -= n
}

// GetBits needs, peeks, and dumps n bits in one call.
func (r *Reader) GetBits(n uint) (uint32, error) {
	if err := r.NeedBits(n); err != nil {
		return 0, err
	}
	v := r.PeekBits(n)
	r.DumpBits(n)
	return v, nil
}

// AlignByte discards the fractional bits of the current partially-consumed
// byte, as required before a stored INFLATE block. Whole bytes already
// buffered in the accumulator are kept so GetBits can still serve the
// stored-block length fields from them.
func (r *Reader) AlignByte() {
	drop := r.avail % 8
	r.acc >>= drop
	r.avail -= drop
}

// BitsBuffered reports how many bits currently sit in the accumulator.
func (r *Reader) BitsBuffered() uint { return r.avail }
