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
	"bytes"
	"testing"

	"github.com/jopamo/infozip-utils/bitio"
	"github.com/jopamo/infozip-utils/window"
)

// collectSink gathers every flushed chunk into a single buffer.
type collectSink struct {
	buf bytes.Buffer
}

func (s *collectSink) Write(p []byte) (window.SinkResult, error) {
	s.buf.Write(p)
	return window.SinkOK, nil
}

func TestNew_UnsupportedMethod(t *testing.T) {
	if _, err := New(Method(99)); err == nil {
		t.Fatal("New(99) = nil error, want ErrUnsupportedMethod")
	}
}

func TestStored_RoundTrip(t *testing.T) {
	data := []byte("hello, world! this is a stored entry.")
	sink := &collectSink{}
	w, err := window.New(32*1024, sink)
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(bytes.NewReader(data), int64(len(data)))

	c := Stored{}
	if err := c.Decode(r, w, Params{UncompressedSize: int64(len(data))}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := w.FlushPartial(w.Cursor()); err != nil {
		t.Fatal(err)
	}
	if sink.buf.String() != string(data) {
		t.Fatalf("got %q, want %q", sink.buf.String(), string(data))
	}
}

// readerAt adapts a byte slice to io.ReaderAt for bitio.NewReader.
type readerAt struct{ b []byte }

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, bytes.ErrTooLarge
	}
	n := copy(p, r.b[off:])
	return n, nil
}

func TestImplode_LiteralOnlyStream(t *testing.T) {
	// Build a minimal IMPLODE stream with raw 8-bit literals (no literal
	// tree, GPFlag bit 2 clear) encoding "AB": header is two trees (length,
	// distance) of 64 symbols each at 6 bits, followed by two literal
	// flag+byte pairs and no match.
	var bw bitWriter
	// length tree: a complete 64-symbol tree at 6 bits each (2^6 = 64,
	// exactly fills the Kraft budget). A pair's count field is 4 bits wide
	// (max 16 symbols per pair), so 64 symbols take 4 pairs of 16.
	bw.byte(3) // pairs-1 = 3 => 4 pairs
	for i := 0; i < 4; i++ {
		bw.byte(0x05 | (0x0f << 4)) // bits-1=5 (6 bits), count-1=15 (16 codes)
	}
	// distance tree: same shape, never exercised since the stream has no
	// matches, but must still be a well-formed (complete) code.
	bw.byte(3)
	for i := 0; i < 4; i++ {
		bw.byte(0x05 | (0x0f << 4))
	}

	bw.bits(1, 1) // literal flag
	bw.bits(8, 'A')
	bw.bits(1, 1) // literal flag
	bw.bits(8, 'B')
	bw.flushByte()

	sink := &collectSink{}
	w, err := window.New(32*1024, sink)
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(readerAt{bw.buf}, int64(len(bw.buf)))

	c := Implode{}
	params := Params{UncompressedSize: 2, GPFlag: 0}
	if err := c.Decode(r, w, params); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := w.FlushPartial(w.Cursor()); err != nil {
		t.Fatal(err)
	}
	if sink.buf.String() != "AB" {
		t.Fatalf("got %q, want %q", sink.buf.String(), "AB")
	}
}

// canonicalCodes assigns canonical Huffman codes (RFC 1951 §3.2.2) from a
// length vector, mirroring the assignment huffman.Build decodes against.
func canonicalCodes(lengths []int) []uint32 {
	maxBits := 0
	for _, l := range lengths {
		if l > maxBits {
			maxBits = l
		}
	}
	blCount := make([]int, maxBits+1)
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}
	code := 0
	nextCode := make([]int, maxBits+1)
	for bits := 1; bits <= maxBits; bits++ {
		code = (code + blCount[bits-1]) << 1
		nextCode[bits] = code
	}
	codes := make([]uint32, len(lengths))
	for n, l := range lengths {
		if l > 0 {
			codes[n] = uint32(nextCode[l])
			nextCode[l]++
		}
	}
	return codes
}

// huffBits writes a canonical Huffman code most-significant-bit first, the
// DEFLATE convention (distinct from the LSB-first convention used for every
// other multi-bit field in the format).
func (w *bitWriter) huffBits(code uint32, length int) {
	for i := length - 1; i >= 0; i-- {
		w.bits(1, (code>>uint(i))&1)
	}
}

func TestInflate_FixedBlockRoundTrip(t *testing.T) {
	lit := fixedLitLengths()
	codes := canonicalCodes(lit)

	var bw bitWriter
	bw.bits(1, 1) // last block
	bw.bits(2, 1) // type = fixed Huffman
	for _, sym := range []int{'a', 'b', 'c', 256} {
		bw.huffBits(codes[sym], lit[sym])
	}
	bw.flushByte()

	sink := &collectSink{}
	w, err := window.New(32*1024, sink)
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(readerAt{bw.buf}, int64(len(bw.buf)))

	c := Inflate{}
	if err := c.Decode(r, w, Params{UncompressedSize: 3}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := w.FlushPartial(w.Cursor()); err != nil {
		t.Fatal(err)
	}
	if sink.buf.String() != "abc" {
		t.Fatalf("got %q, want %q", sink.buf.String(), "abc")
	}
}

func TestInflate_StoredBlock(t *testing.T) {
	var bw bitWriter
	bw.bits(1, 1) // last block
	bw.bits(2, 0) // type = stored
	bw.flushByte()
	payload := []byte("stored payload")
	n := uint16(len(payload))
	bw.buf = append(bw.buf, byte(n), byte(n>>8), byte(^n), byte(^n>>8))
	bw.buf = append(bw.buf, payload...)

	sink := &collectSink{}
	w, err := window.New(32*1024, sink)
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(readerAt{bw.buf}, int64(len(bw.buf)))

	c := Inflate{}
	if err := c.Decode(r, w, Params{UncompressedSize: int64(len(payload))}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := w.FlushPartial(w.Cursor()); err != nil {
		t.Fatal(err)
	}
	if sink.buf.String() != string(payload) {
		t.Fatalf("got %q, want %q", sink.buf.String(), string(payload))
	}
}

// bitWriter is a tiny LSB-first bit writer used to hand-build fixture
// streams for the codecs under test.
type bitWriter struct {
	buf  []byte
	cur  byte
	nbit uint
}

func (w *bitWriter) bits(n uint, v uint32) {
	for i := uint(0); i < n; i++ {
		bit := byte((v >> i) & 1)
		w.cur |= bit << w.nbit
		w.nbit++
		if w.nbit == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur = 0
			w.nbit = 0
		}
	}
}

func (w *bitWriter) byte(b byte) {
	w.flushByte()
	w.buf = append(w.buf, b)
}

func (w *bitWriter) flushByte() {
	if w.nbit > 0 {
		w.buf = append(w.buf, w.cur)
		w.cur = 0
		w.nbit = 0
	}
}

func TestInflate_IncompleteDistanceTreeTolerated(t *testing.T) {
	// A dynamic block declaring a single distance code of length 1 — an
	// incomplete distance tree that a well-known producer emits for
	// literal-only blocks. The block must still decode.
	var bw bitWriter
	bw.bits(1, 1) // last block
	bw.bits(2, 2) // type = dynamic
	bw.bits(5, 0) // HLIT = 257
	bw.bits(5, 0) // HDIST = 1
	bw.bits(4, 15) // HCLEN = 19

	// Code-length alphabet: symbol 0 is one bit, symbols 1 and 18 two
	// bits, transmitted in the fixed permutation order.
	clLens := [19]int{0: 1, 1: 2, 18: 2}
	for _, sym := range codeLengthOrder {
		bw.bits(3, uint32(clLens[sym]))
	}
	clCodes := canonicalCodes(clLens[:])

	writeCL := func(sym int) { bw.huffBits(clCodes[sym], clLens[sym]) }

	// Literal lengths: 97 zeros, 'a' at one bit, 158 zeros, then symbol
	// 256 at one bit; distance lengths: a single one-bit code.
	writeCL(18)
	bw.bits(7, 97-11)
	writeCL(1)
	writeCL(18)
	bw.bits(7, 138-11)
	writeCL(18)
	bw.bits(7, 20-11)
	writeCL(1)
	writeCL(1)

	// Block data: 'a' then end-of-block. Both codes are one bit.
	bw.bits(1, 0) // 'a'
	bw.bits(1, 1) // 256
	bw.flushByte()

	sink := &collectSink{}
	w, err := window.New(32*1024, sink)
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(readerAt{bw.buf}, int64(len(bw.buf)))

	c := Inflate{}
	if err := c.Decode(r, w, Params{UncompressedSize: 1}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := w.FlushPartial(w.Cursor()); err != nil {
		t.Fatal(err)
	}
	if sink.buf.String() != "a" {
		t.Fatalf("got %q, want %q", sink.buf.String(), "a")
	}
}

func TestInflate64_ExtendedLengthCode(t *testing.T) {
	// Deflate64 redefines length symbol 285 to carry 16 extra bits with
	// base 3: a single back-reference can span up to 65538 bytes.
	lit := fixedLitLengths()
	codes := canonicalCodes(lit)

	var bw bitWriter
	bw.bits(1, 1) // last block
	bw.bits(2, 1) // type = fixed Huffman
	bw.huffBits(codes['a'], lit['a'])
	bw.huffBits(codes[285], lit[285])
	bw.bits(16, 300-3) // extra bits: length 300
	bw.huffBits(0, 5)  // distance symbol 0 = distance 1
	bw.huffBits(codes[256], lit[256])
	bw.flushByte()

	sink := &collectSink{}
	w, err := window.New(64*1024, sink)
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(readerAt{bw.buf}, int64(len(bw.buf)))

	c := Inflate{Variant64: true}
	if err := c.Decode(r, w, Params{UncompressedSize: 301}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := w.FlushPartial(w.Cursor()); err != nil {
		t.Fatal(err)
	}
	want := bytes.Repeat([]byte("a"), 301)
	if !bytes.Equal(sink.buf.Bytes(), want) {
		t.Fatalf("got %d bytes, want 301 'a's", sink.buf.Len())
	}
}

func TestShrink_KwKwK(t *testing.T) {
	// Codes: 'a', then the not-yet-written code 257 (the KwKwK corner),
	// then 'b'. Output is "a" + "aa" + "b".
	var bw bitWriter
	bw.bits(9, 'a')
	bw.bits(9, 257)
	bw.bits(9, 'b')
	bw.flushByte()

	sink := &collectSink{}
	w, err := window.New(32*1024, sink)
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(readerAt{bw.buf}, int64(len(bw.buf)))

	c := Shrink{}
	if err := c.Decode(r, w, Params{UncompressedSize: 4}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := w.FlushPartial(w.Cursor()); err != nil {
		t.Fatal(err)
	}
	if sink.buf.String() != "aaab" {
		t.Fatalf("got %q, want %q", sink.buf.String(), "aaab")
	}
}

func TestShrink_WidthIncrease(t *testing.T) {
	// The escape sequence 256,1 widens codes to 10 bits; the following
	// literals must be read at the new width.
	var bw bitWriter
	bw.bits(9, 256)
	bw.bits(9, 1)
	bw.bits(10, 'a')
	bw.bits(10, 'b')
	bw.flushByte()

	sink := &collectSink{}
	w, err := window.New(32*1024, sink)
	if err != nil {
		t.Fatal(err)
	}
	r := bitio.NewReader(readerAt{bw.buf}, int64(len(bw.buf)))

	c := Shrink{}
	if err := c.Decode(r, w, Params{UncompressedSize: 2}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := w.FlushPartial(w.Cursor()); err != nil {
		t.Fatal(err)
	}
	if sink.buf.String() != "ab" {
		t.Fatalf("got %q, want %q", sink.buf.String(), "ab")
	}
}
