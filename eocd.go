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
	"fmt"
)

const (
	eocdFixedSize         = 22
	eocdMaxCommentLen     = 65535
	zip64EoCDFixedSize    = 56
	zip64LocatorFixedSize = 20
)

// EoCDRecord summarizes the end-of-central-directory record, with the
// ZIP64 extension folded in when present.
type EoCDRecord struct {
	TotalEntries int64
	CDOffset     uint32
	CDSize       uint32
	Comment      []byte

	IsZip64 bool

	// Zip64* fields are populated only when IsZip64 is true.
	Zip64CDOffset   int64
	Zip64CDSize     int64
	Zip64EoCDStart  int64
	Zip64EoCDEnd    int64
	LocatorStart    int64
	LocatorEnd      int64
	ClassicEoCDBeg  int64
	ClassicEoCDEnd  int64
}

// locateEoCD scans the archive's tail for the EoCD signature (it may be
// preceded by up to 65535 bytes of comment), then follows a ZIP64 locator
// to the ZIP64 EoCD record if one is present.
func locateEoCD(r readerAtSizer, size int64) (EoCDRecord, int64, error) {
	searchLen := int64(eocdFixedSize + eocdMaxCommentLen)
	if searchLen > size {
		searchLen = size
	}
	buf := make([]byte, searchLen)
	start := size - searchLen
	if _, err := r.ReadAt(buf, start); err != nil {
		return EoCDRecord{}, 0, fmt.Errorf("%w: reading EoCD tail: %v", ErrTruncated, err)
	}

	pos := -1
	for i := len(buf) - eocdFixedSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:]) == sigEoCD {
			pos = i
			break
		}
	}
	if pos < 0 {
		return EoCDRecord{}, 0, fmt.Errorf("%w: no end-of-central-directory record found", ErrBadSignature)
	}
	eocdPos := start + int64(pos)
	fixed := buf[pos : pos+eocdFixedSize]

	total := binary.LittleEndian.Uint16(fixed[10:12])
	cdSize := binary.LittleEndian.Uint32(fixed[12:16])
	cdOffset := binary.LittleEndian.Uint32(fixed[16:20])
	commentLen := binary.LittleEndian.Uint16(fixed[20:22])

	commentEnd := pos + eocdFixedSize + int(commentLen)
	if commentEnd > len(buf) {
		commentEnd = len(buf)
	}
	rec := EoCDRecord{
		TotalEntries:   int64(total),
		CDOffset:       cdOffset,
		CDSize:         cdSize,
		Comment:        append([]byte(nil), buf[pos+eocdFixedSize:commentEnd]...),
		ClassicEoCDBeg: eocdPos,
		ClassicEoCDEnd: eocdPos + eocdFixedSize + int64(commentLen),
	}

	// A ZIP64 locator, if present, sits exactly zip64LocatorFixedSize bytes
	// before the EoCD.
	locStart := eocdPos - zip64LocatorFixedSize
	if locStart >= 0 {
		var locBuf [zip64LocatorFixedSize]byte
		if _, err := r.ReadAt(locBuf[:], locStart); err == nil && binary.LittleEndian.Uint32(locBuf[:4]) == sigZip64Locator {
			zip64Start := int64(binary.LittleEndian.Uint64(locBuf[8:16]))
			zrec, err := parseZip64EoCD(r, zip64Start)
			if err != nil {
				return EoCDRecord{}, 0, err
			}
			rec.IsZip64 = true
			rec.TotalEntries = zrec.totalEntries
			rec.Zip64CDOffset = zrec.cdOffset
			rec.Zip64CDSize = zrec.cdSize
			rec.Zip64EoCDStart = zip64Start
			rec.Zip64EoCDEnd = zrec.end
			rec.LocatorStart = locStart
			rec.LocatorEnd = locStart + zip64LocatorFixedSize
		}
	}

	return rec, eocdPos, nil
}

type zip64EoCD struct {
	totalEntries int64
	cdOffset     int64
	cdSize       int64
	end          int64
}

func parseZip64EoCD(r readerAtSizer, off int64) (zip64EoCD, error) {
	var hdr [zip64EoCDFixedSize]byte
	if _, err := r.ReadAt(hdr[:], off); err != nil {
		return zip64EoCD{}, fmt.Errorf("%w: reading ZIP64 EoCD: %v", ErrTruncated, err)
	}
	if binary.LittleEndian.Uint32(hdr[:4]) != sigZip64EoCD {
		return zip64EoCD{}, fmt.Errorf("%w: ZIP64 EoCD signature mismatch", ErrBadSignature)
	}
	recordSize := int64(binary.LittleEndian.Uint64(hdr[4:12]))
	total := int64(binary.LittleEndian.Uint64(hdr[32:40]))
	cdSize := int64(binary.LittleEndian.Uint64(hdr[40:48]))
	cdOffset := int64(binary.LittleEndian.Uint64(hdr[48:56]))
	return zip64EoCD{
		totalEntries: total,
		cdOffset:     cdOffset,
		cdSize:       cdSize,
		end:          off + 12 + recordSize, // recordSize excludes the 12-byte signature+size field
	}, nil
}

// readerAtSizer is the minimal surface eocd parsing needs; *Archive and a
// bytes-backed test double both satisfy it.
type readerAtSizer interface {
	ReadAt(p []byte, off int64) (int, error)
}
