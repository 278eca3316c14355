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
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"golang.org/x/text/encoding/charmap"
)

const (
	extraIDZip64    = 0x0001
	extraIDUnixPath = 0x7075 // "up" — Info-ZIP UTF-8 path
	extraIDOS2      = 0x0009
	extraIDIBMACL   = 0x0065
	extraIDMac3     = 0x07c8
	extraIDBeOS     = 0x6542
	extraIDAtheOS   = 0x7441
	extraIDNTSD     = 0x4453
	extraIDPKVMS    = 0x000a

	sentinel32 = 0xFFFFFFFF
	sentinel16 = 0xFFFF
)

// applyZip64Override walks extra looking for the ZIP64 extended-info block
// (id 0x0001) and, when found, overwrites any field whose 32-bit value in
// the fixed header was the 0xFFFFFFFF/0xFFFF sentinel with its 64-bit
// counterpart, in the fixed order the format defines: ucsize, csize,
// lhoff, disk-start. diskStart may be nil (local headers don't carry one).
func applyZip64Override(csize, ucsize, lhoff *int64, diskStart *uint32, extra []byte) {
	block, ok := findExtraBlock(extra, extraIDZip64)
	if !ok {
		return
	}
	// The ZIP64 block stores only the fields whose fixed-size counterpart
	// was a sentinel, in this fixed order, regardless of which fields are
	// actually present.
	pos := 0
	next8 := func() (int64, bool) {
		if pos+8 > len(block) {
			return 0, false
		}
		v := int64(binary.LittleEndian.Uint64(block[pos : pos+8]))
		pos += 8
		return v, true
	}
	if *ucsize == sentinel32 {
		if v, ok := next8(); ok {
			*ucsize = v
		}
	}
	if *csize == sentinel32 {
		if v, ok := next8(); ok {
			*csize = v
		}
	}
	if *lhoff == sentinel32 {
		if v, ok := next8(); ok {
			*lhoff = v
		}
	}
	if diskStart != nil && *diskStart == sentinel16 {
		if pos+4 <= len(block) {
			*diskStart = binary.LittleEndian.Uint32(block[pos : pos+4])
		}
	}
}

// findExtraBlock walks the {id:16, len:16, data[len]} block sequence and
// returns the first block matching id.
func findExtraBlock(extra []byte, id uint16) ([]byte, bool) {
	for i := 0; i+4 <= len(extra); {
		blockID := binary.LittleEndian.Uint16(extra[i:])
		blockLen := int(binary.LittleEndian.Uint16(extra[i+2:]))
		start := i + 4
		end := start + blockLen
		if end > len(extra) {
			return nil, false
		}
		if blockID == id {
			return extra[start:end], true
		}
		i = end
	}
	return nil, false
}

// decodeName converts a raw filename byte string to UTF-8. When the
// UTF-8 flag (general-purpose bit 11) is clear, legacy producers wrote
// CP437; decoding through
// charmap.CodePage437 keeps those names readable rather than assuming
// the bytes are already UTF-8.
func decodeName(raw []byte, utf8Flag bool) string {
	if utf8Flag {
		return string(raw)
	}
	out, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// unixPathOverride returns the UTF-8 path carried in an Info-ZIP 0x7075
// extra block, if present and its CRC-32 over the original name matches.
func unixPathOverride(extra []byte, originalName []byte) (string, bool) {
	block, ok := findExtraBlock(extra, extraIDUnixPath)
	if !ok || len(block) < 5 {
		return "", false
	}
	version := block[0]
	if version != 1 {
		return "", false
	}
	crc := binary.LittleEndian.Uint32(block[1:5])
	if crc != crc32.ChecksumIEEE(originalName) {
		return "", false
	}
	return string(block[5:]), true
}

// validateExtraField walks extra block by block in test mode, decompressing
// any extended-attribute sub-blob the block kind defines and checking its
// size (see validateEABlock); only PKVMS blocks get a CRC-32 check. Unknown
// block kinds are silently accepted.
func validateExtraField(extra []byte) error {
	for i := 0; i+4 <= len(extra); {
		id := binary.LittleEndian.Uint16(extra[i:])
		blockLen := int(binary.LittleEndian.Uint16(extra[i+2:]))
		start := i + 4
		end := start + blockLen
		if end > len(extra) {
			return fmt.Errorf("%w: extra block id 0x%04x overruns field", ErrEFTrunc, id)
		}
		data := extra[start:end]

		switch id {
		case extraIDOS2, extraIDIBMACL, extraIDMac3, extraIDBeOS, extraIDAtheOS:
			if err := validateEABlock(data, 0); err != nil {
				return err
			}
		case extraIDNTSD:
			if len(data) < 1 {
				return fmt.Errorf("%w: NTSD block missing version", ErrEFTrunc)
			}
			version := data[0]
			if version > 3 {
				return fmt.Errorf("%w: unsupported NTSD version %d", ErrUnsupportedVersion, version)
			}
			if err := validateEABlock(data, 1); err != nil {
				return err
			}
		case extraIDPKVMS:
			if len(data) < 4 {
				return fmt.Errorf("%w: PKVMS block too short", ErrEFTrunc)
			}
			want := binary.LittleEndian.Uint32(data[:4])
			got := crc32.ChecksumIEEE(data[4:])
			if got != want {
				return fmt.Errorf("%w: PKVMS CRC mismatch", ErrBadEACRC)
			}
		}
		i = end
	}
	return nil
}

// validateEABlock decompresses an extended-attribute sub-blob ({ucsize:32,
// method:16, compressed data}) found skip bytes into data and checks that
// the result is exactly ucsize bytes long; no CRC-32 is computed over the
// decompressed bytes. STORED (method 0) and DEFLATE (method 8) are supported, as
// the legacy extended-attribute encoder only ever used those two.
func validateEABlock(data []byte, skip int) error {
	if len(data) < skip+4+2 {
		return fmt.Errorf("%w: EA block too short", ErrEFTrunc)
	}
	body := data[skip:]
	ucsize := binary.LittleEndian.Uint32(body[:4])
	method := binary.LittleEndian.Uint16(body[4:6])
	compressed := body[6:]

	var plain []byte
	switch method {
	case 0:
		plain = compressed
	case 8:
		zr := flate.NewReader(bytes.NewReader(compressed))
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, int64(ucsize)+1))
		if err != nil {
			return fmt.Errorf("%w: EA inflate: %v", ErrEFTrunc, err)
		}
		plain = out
	default:
		return nil // unsupported EA compression method: accept silently
	}
	if uint32(len(plain)) != ucsize {
		return fmt.Errorf("%w: EA size mismatch", ErrEFTrunc)
	}
	return nil
}
