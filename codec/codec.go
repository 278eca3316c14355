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

// Package codec implements the per-method decompression engines that sit
// between the bit-stream reader and the sliding window: STORED, SHRINK
// (LZW with partial clear), IMPLODE (literal/length/distance trees), and
// INFLATE/INFLATE64 (fixed/dynamic/stored DEFLATE blocks).
//
// Each codec is reached through the Codec interface and the New factory;
// dispatch is a plain switch on the method id.
package codec

import (
	"errors"
	"fmt"

	"github.com/jopamo/infozip-utils/bitio"
	"github.com/jopamo/infozip-utils/window"
)

// Method is a ZIP general-purpose compression method identifier.
type Method uint16

const (
	MethodStored    Method = 0
	MethodShrink    Method = 1
	MethodImplode   Method = 6
	MethodDeflate   Method = 8
	MethodDeflate64 Method = 9
)

// String names a Method for diagnostics.
func (m Method) String() string {
	switch m {
	case MethodStored:
		return "stored"
	case MethodShrink:
		return "shrink"
	case MethodImplode:
		return "implode"
	case MethodDeflate:
		return "deflate"
	case MethodDeflate64:
		return "deflate64"
	default:
		return fmt.Sprintf("method(%d)", uint16(m))
	}
}

// ErrUnsupportedMethod is returned by New for any method this engine does
// not implement (e.g. bzip2, LZMA, PPMd — legitimate ZIP methods
// this engine does not decode).
var ErrUnsupportedMethod = errors.New("codec: unsupported compression method")

// ErrInvalidData is returned when a codec's bit stream cannot be decoded:
// an illegal Huffman code, an out-of-range back-reference, a stored-block
// length mismatch, or similar.
var ErrInvalidData = errors.New("codec: invalid compressed data")

// Params carries the per-entry values a codec needs beyond the raw bit
// stream: declared sizes (for length-mismatch diagnostics) and the
// IMPLODE-specific general-purpose flag bits.
type Params struct {
	// CompressedSize and UncompressedSize are the (already ZIP64-resolved)
	// declared sizes from the central directory / local header.
	CompressedSize   int64
	UncompressedSize int64

	// GPFlag is the entry's general-purpose bit flag field; IMPLODE reads
	// bits 1 (window size) and 2 (literal tree present) from it.
	GPFlag uint16
}

// ImplodeWindowSize returns the IMPLODE window size selected by GPFlag bit 1:
// 4 KiB when clear, 8 KiB when set.
func (p Params) ImplodeWindowSize() uint32 {
	if p.GPFlag&0x02 != 0 {
		return 8 * 1024
	}
	return 4 * 1024
}

// ImplodeLiteralTree reports whether GPFlag bit 2 selects Huffman-coded
// literals (true, min match length 3) versus raw 8-bit literals (false,
// min match length 2).
func (p Params) ImplodeLiteralTree() bool {
	return p.GPFlag&0x04 != 0
}

// Codec decodes one member's compressed payload from r, emitting decoded
// bytes into w. Implementations must consume exactly the compressed bytes
// belonging to this member and must not read past params.CompressedSize.
type Codec interface {
	Decode(r *bitio.Reader, w *window.Window, params Params) error
}

// New returns the Codec for method, or ErrUnsupportedMethod.
func New(method Method) (Codec, error) {
	switch method {
	case MethodStored:
		return Stored{}, nil
	case MethodShrink:
		return Shrink{}, nil
	case MethodImplode:
		return Implode{}, nil
	case MethodDeflate:
		return Inflate{Variant64: false}, nil
	case MethodDeflate64:
		return Inflate{Variant64: true}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
}
