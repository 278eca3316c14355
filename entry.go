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
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/jopamo/infozip-utils/bitio"
	"github.com/jopamo/infozip-utils/codec"
	"github.com/jopamo/infozip-utils/crypt"
	"github.com/jopamo/infozip-utils/window"
)

// entryOutcome is the terminal state of the per-entry state machine:
// SeekLH → ValidateLH → (Decrypt?) → RunCodec → VerifyCRC
// → (ConsumeDD?) → CommitSpan.
type entryOutcome int

const (
	entryCommitted entryOutcome = iota
	entrySkipped
	entryBomb
	entryFatal
)

// decryptingReaderAt decrypts a PKWARE traditional-cipher byte stream on
// the fly. It requires monotonically increasing, contiguous reads starting
// exactly at base — true of a codec decoding its own payload straight
// through — since the cipher is a stream cipher keyed by every plaintext
// byte it has already produced.
type decryptingReaderAt struct {
	src    io.ReaderAt
	base   int64
	cipher *crypt.Cipher
	pos    int64
}

func (d *decryptingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off-d.base != d.pos {
		return 0, fmt.Errorf("unzip: non-sequential encrypted read at %d, expected %d", off-d.base, d.pos)
	}
	n, err := d.src.ReadAt(p, off)
	if n > 0 {
		d.cipher.Decrypt(p[:n], p[:n])
		d.pos += int64(n)
	}
	return n, err
}

// trackingSink wraps the real output writer (nil for ModeTest/ModeList, in
// which case bytes are discarded but still hashed) with a running CRC-32
// and byte count, so the per-entry extractor can verify the "CRC-32 of
// emitted bytes equals the declared CRC" invariant regardless of mode.
type trackingSink struct {
	w    io.Writer
	hash uint32
	n    int64
}

func newTrackingSink(w io.Writer) *trackingSink { return &trackingSink{w: w} }

func (s *trackingSink) Write(p []byte) (window.SinkResult, error) {
	s.hash = crc32.Update(s.hash, crc32.IEEETable, p)
	s.n += int64(len(p))
	if s.w != nil {
		if _, err := s.w.Write(p); err != nil {
			return window.SinkDiskFull, fmt.Errorf("%w: %v", ErrDiskFull, err)
		}
	}
	return window.SinkOK, nil
}

// extractorState is the single-shot compensating-retry flag: the driver
// attempts at most one swap between extra_bytes and 0 when the first
// local-header signature fails. It fires once per archive,
// not once per entry.
type extractorState struct {
	triedExtraBytesSwap bool
}

// extractEntry runs the per-entry state machine for one CD record.
func extractEntry(ctx *Context, arc *Archive, r *bitio.Reader, cde CDEntry, isFirst bool, st *extractorState) (entryOutcome, error) {
	extraBytes := arc.ExtraBytes()
	request := cde.LocalHeaderOff + extraBytes

	// A negative request means extra_bytes itself is bad (it can only
	// happen through a bogus computed prefix); for the first entry a
	// single compensating retry with extra_bytes = 0 is attempted, the
	// same one-shot swap used below for a signature mismatch.
	if request < 0 {
		if !isFirst || st.triedExtraBytesSwap {
			return entryFatal, fmt.Errorf("%w: local header offset %d out of range", ErrBadHeader, request)
		}
		st.triedExtraBytesSwap = true
		request = cde.LocalHeaderOff
	}

	if ctx.Cover.Overlaps(request, request+1) {
		return entryBomb, fmt.Errorf("%w: local header offset %d already claimed", ErrBomb, request)
	}

	r.Seek(request)
	ok, err := checkLocalSignature(r)
	if err != nil {
		return entryFatal, err
	}
	if !ok && isFirst && !st.triedExtraBytesSwap {
		st.triedExtraBytesSwap = true
		request = cde.LocalHeaderOff
		r.Seek(request)
		ok, err = checkLocalSignature(r)
	}
	if err != nil {
		return entryFatal, err
	}
	if !ok {
		return entryFatal, fmt.Errorf("%w: local header signature mismatch for %q", ErrBadSignature, cde.Name)
	}

	// readLocalHeader parses the fixed part from the signature onward.
	r.Seek(request)
	lh, err := readLocalHeader(r)
	if err != nil {
		return entryFatal, err
	}

	name := cde.Name
	if override, ok := unixPathOverride(lh.Extra, []byte(lh.Name)); ok {
		name = override
	} else if lh.Name != "" && lh.Name != cde.Name {
		// The central directory is the archive's index; when the two
		// disagree, its name wins.
		ctx.Diagnostics.Warnf("entry %q: local header names it %q, using central directory name", cde.Name, lh.Name)
	}

	crc := cde.CRC32
	csize := cde.CompressedSize
	usize := cde.UncompressedSize

	// With flag bit 3 clear, the local header repeats the CRC and sizes
	// the central directory already declared; a disagreement is a producer
	// bug worth surfacing, decoded with the CD values regardless.
	if !cde.HasDataDescriptor() {
		if lh.CRC32 != crc || lh.CompressedSize != csize || lh.UncompressedSize != usize {
			ctx.Diagnostics.Warnf("entry %q: local header CRC/sizes disagree with central directory", cde.Name)
		}
	}

	if ctx.Options.Mode == ModeTest {
		if err := validateExtraField(cde.Extra); err != nil {
			return entrySkipped, fmt.Errorf("entry %q: %w", cde.Name, err)
		}
	}

	payloadStart := r.Tell()
	var byteReader io.ReaderAt = arc

	if cde.Encrypted() {
		var header [crypt.HeaderSize]byte
		if _, err := r.Read(header[:]); err != nil {
			return entryFatal, err
		}
		password, available := ctx.Options.passwordProvider().GetPassword(
			fmt.Sprintf("password for %s", cde.Name),
			PasswordScope{EntryName: cde.Name},
		)
		if !available {
			return entrySkipped, ErrNoPassword
		}
		checkByte := crypt.CheckByte(byte(cde.ModTime >> 8))
		if cde.HasDataDescriptor() {
			checkByte = crypt.CheckByte(byte(crc >> 24))
		}
		cipher, _, err := crypt.ValidateHeader(password, header, checkByte)
		if err != nil {
			return entrySkipped, err
		}
		payloadStart = r.Tell()
		byteReader = &decryptingReaderAt{src: arc, base: payloadStart, cipher: cipher}
		csize -= crypt.HeaderSize

		// For a STORED entry the declared compressed size counted the
		// 12-byte encryption header; the plaintext is csize bytes, and
		// that is what the codec must emit.
		if cde.Method == uint16(codec.MethodStored) && usize != csize {
			ctx.Diagnostics.Warnf("entry %q: stored size %d disagrees with encrypted payload %d, using payload size", cde.Name, usize, csize)
			usize = csize
		}
	}

	c, err := codec.New(codec.Method(cde.Method))
	if err != nil {
		return entrySkipped, err
	}

	meta := entryMetaFor(cde, name)

	var out io.WriteCloser
	var openResult OpenResult
	sinkImpl := ctx.Sink

	switch {
	case ctx.Options.Mode != ModeExtract:
		openResult = OpenSkipOK
	case meta.IsDir:
		_, openResult, err = sinkImpl.Open(name, meta)
		if err != nil {
			return entrySkipped, err
		}
	case meta.IsSymlink:
		openResult = OpenSkipOK
	default:
		out, openResult, err = sinkImpl.Open(name, meta)
		if err != nil {
			return entrySkipped, err
		}
	}
	if openResult == OpenSkipWarn {
		ctx.Diagnostics.Warnf("entry %q: open skipped", cde.Name)
	}

	var linkTargetBuf *limitWriter
	var underlying io.Writer
	switch {
	case meta.IsSymlink:
		linkTargetBuf = &limitWriter{limit: 1 << 20}
		underlying = linkTargetBuf
	case out != nil:
		underlying = out
	}
	track := newTrackingSink(underlying)

	wsize := uint32(32 * 1024)
	if cde.Method == uint16(codec.MethodDeflate64) {
		wsize = 64 * 1024
	}
	win, err := window.New(wsize, track)
	if err != nil {
		return entryFatal, err
	}

	payloadReader := bitio.NewReader(byteReader, arc.Size())
	payloadReader.Seek(payloadStart)

	decodeErr := c.Decode(payloadReader, win, codec.Params{
		CompressedSize:   csize,
		UncompressedSize: usize,
		GPFlag:           cde.GPFlag,
	})
	if flushErr := win.FlushPartial(win.Cursor()); flushErr != nil && decodeErr == nil {
		decodeErr = flushErr
	}
	if out != nil {
		_ = sinkImpl.Close(out, meta)
	}
	if decodeErr != nil {
		// A full disk or a cancellation is a run-level condition, not a
		// defect in this one member; the driver aborts rather than
		// grinding through the remaining entries.
		if errors.Is(decodeErr, window.ErrDiskFull) || errors.Is(decodeErr, window.ErrCancelled) {
			return entryFatal, fmt.Errorf("entry %q: %w", cde.Name, decodeErr)
		}
		return entrySkipped, fmt.Errorf("entry %q: %w", cde.Name, decodeErr)
	}

	if !cde.HasDataDescriptor() && track.hash != crc {
		return entrySkipped, fmt.Errorf("%w: entry %q", ErrBadCRC, cde.Name)
	}

	payloadEnd := payloadStart + csize

	if cde.HasDataDescriptor() {
		// The local header's CRC/sizes are zero when bit 3 is set; the
		// descriptor immediately following the payload is authoritative,
		// and is parsed from the driver's own absolute-offset reader, not
		// the (possibly decrypting) payload reader used above.
		r.Seek(payloadEnd)
		// The descriptor's compressed size counts the whole payload as
		// written, encryption header included.
		dd, err := readDataDescriptor(r, track.hash, cde.CompressedSize, track.n)
		if err != nil {
			return entrySkipped, fmt.Errorf("entry %q: %w", cde.Name, err)
		}
		if dd.CRC32 != crc {
			return entrySkipped, fmt.Errorf("%w: entry %q", ErrBadCRC, cde.Name)
		}
		payloadEnd = r.Tell()
	}

	if meta.IsSymlink && linkTargetBuf != nil && ctx.Options.Mode == ModeExtract {
		ctx.Symlinks.add(name, string(linkTargetBuf.buf), usize)
	}

	if err := ctx.Cover.Add(request, payloadEnd); err != nil {
		return entryBomb, fmt.Errorf("%w: entry %q", ErrBomb, cde.Name)
	}

	return entryCommitted, nil
}

// entryMetaFor derives filesystem metadata from a CD entry's external
// attributes, following the historical Unix-host convention of packing a
// mode_t into the high 16 bits when ExternalAttrs' low byte names a Unix
// host OS in VersionMadeBy.
func entryMetaFor(cde CDEntry, name string) EntryMeta {
	meta := EntryMeta{
		Name:    name,
		ModTime: dosTimeToTime(cde.ModDate, cde.ModTime),
		IsDir:   cde.IsDir(),
		HostOS:  byte(cde.VersionMadeBy >> 8),
	}
	const unixHost = 3
	const sIFLNK = 0o120000
	if meta.HostOS == unixHost {
		mode := os.FileMode(cde.ExternalAttrs >> 16)
		meta.Mode = mode.Perm()
		if cde.ExternalAttrs>>16&0o170000 == sIFLNK {
			meta.IsSymlink = true
		}
	}
	if !meta.IsDir && !meta.IsSymlink && meta.Mode == 0 {
		meta.Mode = 0o644
	}
	return meta
}

// limitWriter accumulates up to limit bytes, used to capture a symlink
// member's target text without ever writing it to disk as a regular file.
type limitWriter struct {
	buf   []byte
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if len(w.buf)+len(p) > w.limit {
		return 0, fmt.Errorf("unzip: symlink target exceeds %d bytes", w.limit)
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}
