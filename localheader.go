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

const localHeaderFixedSize = 30

// LocalHeader is the per-member header immediately preceding the payload.
type LocalHeader struct {
	VersionNeeded    uint16
	GPFlag           uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   int64
	UncompressedSize int64

	Name  string
	Extra []byte
}

// readLocalHeader parses a local header at the reader's current position.
// It does not verify the signature; callers check that separately so they
// can apply the extra-bytes compensating retry on mismatch.
func readLocalHeader(r *bitio.Reader) (LocalHeader, error) {
	var hdr [localHeaderFixedSize]byte
	if _, err := r.Read(hdr[:]); err != nil {
		return LocalHeader{}, err
	}

	h := LocalHeader{
		VersionNeeded:    binary.LittleEndian.Uint16(hdr[4:6]),
		GPFlag:           binary.LittleEndian.Uint16(hdr[6:8]),
		Method:           binary.LittleEndian.Uint16(hdr[8:10]),
		ModTime:          binary.LittleEndian.Uint16(hdr[10:12]),
		ModDate:          binary.LittleEndian.Uint16(hdr[12:14]),
		CRC32:            binary.LittleEndian.Uint32(hdr[14:18]),
		CompressedSize:   int64(binary.LittleEndian.Uint32(hdr[18:22])),
		UncompressedSize: int64(binary.LittleEndian.Uint32(hdr[22:26])),
	}
	nameLen := binary.LittleEndian.Uint16(hdr[26:28])
	extraLen := binary.LittleEndian.Uint16(hdr[28:30])

	nameRaw := make([]byte, nameLen)
	if _, err := r.Read(nameRaw); err != nil {
		return LocalHeader{}, err
	}
	h.Name = decodeName(nameRaw, h.GPFlag&0x0800 != 0)

	extra := make([]byte, extraLen)
	if _, err := r.Read(extra); err != nil {
		return LocalHeader{}, err
	}
	h.Extra = extra

	applyZip64Override(&h.CompressedSize, &h.UncompressedSize, new(int64), nil, extra)

	return h, nil
}

// checkLocalSignature reads 4 bytes and verifies the local-header
// signature without consuming anything on mismatch from the logical
// stream's perspective (the caller re-seeks on failure).
func checkLocalSignature(r *bitio.Reader) (bool, error) {
	var sig [4]byte
	if _, err := r.Read(sig[:]); err != nil {
		return false, err
	}
	return binary.LittleEndian.Uint32(sig[:]) == sigLocalHeader, nil
}
