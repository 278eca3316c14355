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
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/jopamo/infozip-utils/bitio"
)

func descriptorReader(data []byte) *bitio.Reader {
	return bitio.NewReader(bytes.NewReader(data), int64(len(data)))
}

func TestDataDescriptor_LongestMatchWins(t *testing.T) {
	t.Parallel()
	// A 16-byte descriptor (signature + 32-bit sizes) whose crc and both
	// sizes are zero, immediately followed by another zip signature. The
	// 24-byte candidate fails because its high size field would read the
	// following signature; the reader must accept 16 and advance exactly
	// that far.
	var buf []byte
	var desc [16]byte
	binary.LittleEndian.PutUint32(desc[0:], sigDataDesc)
	buf = append(buf, desc[:]...)
	var next [4]byte
	binary.LittleEndian.PutUint32(next[0:], sigLocalHeader)
	buf = append(buf, next[:]...)
	buf = append(buf, make([]byte, 8)...)

	r := descriptorReader(buf)
	dd, err := readDataDescriptor(r, 0, 0, 0)
	if err != nil {
		t.Fatalf("readDataDescriptor: %v", err)
	}
	if dd.Length != 16 {
		t.Errorf("Length = %d, want 16", dd.Length)
	}
	if got := r.Tell(); got != 16 {
		t.Errorf("cursor = %d, want 16", got)
	}
}

func TestDataDescriptor_NoSignature32(t *testing.T) {
	t.Parallel()
	var desc [12]byte
	binary.LittleEndian.PutUint32(desc[0:], 0x12345678)
	binary.LittleEndian.PutUint32(desc[4:], 100)
	binary.LittleEndian.PutUint32(desc[8:], 400)
	buf := append(desc[:], make([]byte, 12)...)

	r := descriptorReader(buf)
	dd, err := readDataDescriptor(r, 0x12345678, 100, 400)
	if err != nil {
		t.Fatalf("readDataDescriptor: %v", err)
	}
	if dd.Length != 12 {
		t.Errorf("Length = %d, want 12", dd.Length)
	}
	if dd.CRC32 != 0x12345678 || dd.CompressedSize != 100 || dd.UncompressedSize != 400 {
		t.Errorf("descriptor = %+v", dd)
	}
}

func TestDataDescriptor_Signature64(t *testing.T) {
	t.Parallel()
	var desc [24]byte
	binary.LittleEndian.PutUint32(desc[0:], sigDataDesc)
	binary.LittleEndian.PutUint32(desc[4:], 0xCAFEBABE)
	binary.LittleEndian.PutUint64(desc[8:], 5_000_000_000)
	binary.LittleEndian.PutUint64(desc[16:], 12_000_000_000)

	r := descriptorReader(desc[:])
	dd, err := readDataDescriptor(r, 0xCAFEBABE, 5_000_000_000, 12_000_000_000)
	if err != nil {
		t.Fatalf("readDataDescriptor: %v", err)
	}
	if dd.Length != 24 {
		t.Errorf("Length = %d, want 24", dd.Length)
	}
}

func TestDataDescriptor_NoCandidateMatches(t *testing.T) {
	t.Parallel()
	buf := make([]byte, 24)
	r := descriptorReader(buf)
	if _, err := readDataDescriptor(r, 0xFFFFFFFF, 1, 2); !errors.Is(err, ErrBadDescriptor) {
		t.Fatalf("err = %v, want ErrBadDescriptor", err)
	}
}
