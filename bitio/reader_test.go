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

package bitio

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderGetBitsLSBFirst(t *testing.T) {
	t.Parallel()

	// 0b1011_0010, 0b0000_0001 little bit order: bits come out LSB-first,
	// byte by byte, in stream order.
	data := []byte{0xB2, 0x01}
	r := NewReader(bytes.NewReader(data), int64(len(data)))

	v, err := r.GetBits(4)
	if err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	if v != 0x2 {
		t.Fatalf("expected 0x2, got 0x%x", v)
	}

	v, err = r.GetBits(4)
	if err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	if v != 0xB {
		t.Fatalf("expected 0xB, got 0x%x", v)
	}

	v, err = r.GetBits(8)
	if err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	if v != 0x01 {
		t.Fatalf("expected 0x01, got 0x%x", v)
	}
}

func TestReaderReadFlushesBits(t *testing.T) {
	t.Parallel()

	data := []byte{0xFF, 0xAA, 0xBB, 0xCC}
	r := NewReader(bytes.NewReader(data), int64(len(data)))

	if _, err := r.GetBits(3); err != nil {
		t.Fatalf("GetBits: %v", err)
	}

	buf := make([]byte, 2)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf, []byte{0xBB, 0xCC}) {
		t.Fatalf("expected remaining bytes, got %x", buf)
	}
}

func TestReaderTruncated(t *testing.T) {
	t.Parallel()

	r := NewReader(bytes.NewReader([]byte{0x01}), 1)
	if _, err := r.GetBits(4); err != nil {
		t.Fatalf("first GetBits: %v", err)
	}
	if _, err := r.GetBits(8); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReaderAlignByteKeepsBufferedBytes(t *testing.T) {
	t.Parallel()

	data := []byte{0x07, 0x34, 0x12}
	r := NewReader(bytes.NewReader(data), int64(len(data)))

	// Consume 3 bits (as if reading BFINAL+BTYPE), leaving 5 buffered.
	if _, err := r.GetBits(3); err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	r.AlignByte()
	if r.BitsBuffered()%8 != 0 {
		t.Fatalf("expected byte-aligned accumulator, got %d bits", r.BitsBuffered())
	}

	v, err := r.GetBits(16)
	if err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	if v != 0x1234 {
		t.Fatalf("expected 0x1234, got 0x%x", v)
	}
}

func TestReaderSeekResetsBits(t *testing.T) {
	t.Parallel()

	data := []byte{0xFF, 0x00, 0x11}
	r := NewReader(bytes.NewReader(data), int64(len(data)))
	if _, err := r.GetBits(4); err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	r.Seek(2)
	if r.Tell() != 2 {
		t.Fatalf("expected Tell()==2, got %d", r.Tell())
	}
	v, err := r.GetBits(8)
	if err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	if v != 0x11 {
		t.Fatalf("expected 0x11, got 0x%x", v)
	}
}

func TestReaderUsedSize(t *testing.T) {
	t.Parallel()

	data := []byte{0x01, 0x02, 0x03, 0x04}
	r := NewReader(bytes.NewReader(data), int64(len(data)))
	if _, err := r.GetBits(4); err != nil {
		t.Fatalf("GetBits: %v", err)
	}
	used := r.UsedSize(4, 0)
	if used != 4 {
		t.Fatalf("expected used_csize==4, got %d", used)
	}
}
