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
	"encoding/binary"

	"github.com/jopamo/infozip-utils/bitio"
)

// DataDescriptor is the optional trailing block carrying CRC/sizes when
// general-purpose flag bit 3 is set.
type DataDescriptor struct {
	CRC32            uint32
	CompressedSize   int64
	UncompressedSize int64
	Length           int // bytes actually consumed (24, 20, 16, or 12)
}

// candidateLengths are tried longest-first: {signature+64-bit sizes,
// no-signature+64-bit sizes, signature+32-bit sizes, no-signature+32-bit
// sizes}. Accepting the longest match is the single non-obvious rule that
// keeps the reader compatible with a well-known producer bug.
var candidateLengths = [4]int{24, 20, 16, 12}

// readDataDescriptor reads the raw bytes needed for the longest candidate
// at the reader's current position, then tries each candidate length in
// order, accepting the longest whose embedded CRC and both sizes equal the
// values the caller expects (wantCRC, wantCSize, wantUSize — the extractor
// passes the measured CRC-32 and output size and the central directory's
// compressed size). On success the reader is repositioned
// to the byte immediately after the accepted descriptor.
func readDataDescriptor(r *bitio.Reader, wantCRC uint32, wantCSize, wantUSize int64) (DataDescriptor, error) {
	start := r.Tell()
	buf := make([]byte, candidateLengths[0])
	n, err := r.Read(buf)
	if err != nil && n == 0 {
		return DataDescriptor{}, err
	}
	buf = buf[:n]

	for _, length := range candidateLengths {
		if length > len(buf) {
			continue
		}
		dd, ok := tryParseDescriptor(buf[:length], length)
		if !ok {
			continue
		}
		if dd.CRC32 == wantCRC && dd.CompressedSize == wantCSize && dd.UncompressedSize == wantUSize {
			r.Seek(start + int64(length))
			return dd, nil
		}
	}
	return DataDescriptor{}, ErrBadDescriptor
}

// tryParseDescriptor interprets buf (exactly length bytes) as one of the
// four layouts, or reports ok=false if the signature is expected but
// absent for that layout.
func tryParseDescriptor(buf []byte, length int) (DataDescriptor, bool) {
	hasSig := length == 24 || length == 16
	sizes64 := length == 24 || length == 20

	off := 0
	if hasSig {
		if binary.LittleEndian.Uint32(buf[:4]) != sigDataDesc {
			return DataDescriptor{}, false
		}
		off = 4
	}
	if off+4 > len(buf) {
		return DataDescriptor{}, false
	}
	crc := binary.LittleEndian.Uint32(buf[off:])
	off += 4

	var csize, usize int64
	if sizes64 {
		if off+16 > len(buf) {
			return DataDescriptor{}, false
		}
		csize = int64(binary.LittleEndian.Uint64(buf[off:]))
		usize = int64(binary.LittleEndian.Uint64(buf[off+8:]))
	} else {
		if off+8 > len(buf) {
			return DataDescriptor{}, false
		}
		csize = int64(binary.LittleEndian.Uint32(buf[off:]))
		usize = int64(binary.LittleEndian.Uint32(buf[off+4:]))
	}

	return DataDescriptor{CRC32: crc, CompressedSize: csize, UncompressedSize: usize, Length: length}, true
}
