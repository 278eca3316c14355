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

	"github.com/jopamo/infozip-utils/bitio"
)

const cdEntryFixedSize = 46

// CDEntry is one member's metadata as recorded in the central directory.
type CDEntry struct {
	VersionMadeBy   uint16
	VersionNeeded   uint16
	GPFlag          uint16
	Method          uint16
	ModTime         uint16
	ModDate         uint16
	CRC32           uint32
	CompressedSize  int64
	UncompressedSize int64
	DiskStart       uint16
	InternalAttrs   uint16
	ExternalAttrs   uint32
	LocalHeaderOff  int64

	Name    string
	NameRaw []byte
	Extra   []byte
	Comment []byte
}

// Encrypted reports general-purpose flag bit 0.
func (e CDEntry) Encrypted() bool { return e.GPFlag&0x0001 != 0 }

// HasDataDescriptor reports general-purpose flag bit 3.
func (e CDEntry) HasDataDescriptor() bool { return e.GPFlag&0x0008 != 0 }

// UTF8Name reports general-purpose flag bit 11 (language encoding flag).
func (e CDEntry) UTF8Name() bool { return e.GPFlag&0x0800 != 0 }

// IsDir reports whether the entry's name denotes a directory placeholder
// (a trailing slash, the historical ZIP convention).
func (e CDEntry) IsDir() bool {
	return len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/'
}

// readCDEntry parses one CD record at the reader's current position,
// applying the ZIP64 extended-info override (extra id 0x0001) when the
// 32-bit fields carry the 0xFFFFFFFF/0xFFFF sentinels.
func readCDEntry(r *bitio.Reader) (CDEntry, error) {
	var hdr [cdEntryFixedSize]byte
	if _, err := r.Read(hdr[:4]); err != nil {
		return CDEntry{}, err
	}
	if binary.LittleEndian.Uint32(hdr[:4]) != sigCentralDir {
		return CDEntry{}, fmt.Errorf("%w: expected central directory signature", ErrBadSignature)
	}
	if _, err := r.Read(hdr[4:]); err != nil {
		return CDEntry{}, err
	}

	e := CDEntry{
		VersionMadeBy:    binary.LittleEndian.Uint16(hdr[4:6]),
		VersionNeeded:    binary.LittleEndian.Uint16(hdr[6:8]),
		GPFlag:           binary.LittleEndian.Uint16(hdr[8:10]),
		Method:           binary.LittleEndian.Uint16(hdr[10:12]),
		ModTime:          binary.LittleEndian.Uint16(hdr[12:14]),
		ModDate:          binary.LittleEndian.Uint16(hdr[14:16]),
		CRC32:            binary.LittleEndian.Uint32(hdr[16:20]),
		CompressedSize:   int64(binary.LittleEndian.Uint32(hdr[20:24])),
		UncompressedSize: int64(binary.LittleEndian.Uint32(hdr[24:28])),
		DiskStart:        binary.LittleEndian.Uint16(hdr[34:36]),
		InternalAttrs:    binary.LittleEndian.Uint16(hdr[36:38]),
		ExternalAttrs:    binary.LittleEndian.Uint32(hdr[38:42]),
		LocalHeaderOff:   int64(binary.LittleEndian.Uint32(hdr[42:46])),
	}
	nameLen := binary.LittleEndian.Uint16(hdr[28:30])
	extraLen := binary.LittleEndian.Uint16(hdr[30:32])
	commentLen := binary.LittleEndian.Uint16(hdr[32:34])

	nameRaw := make([]byte, nameLen)
	if _, err := r.Read(nameRaw); err != nil {
		return CDEntry{}, err
	}
	e.NameRaw = nameRaw
	e.Name = decodeName(nameRaw, e.UTF8Name())

	extra := make([]byte, extraLen)
	if _, err := r.Read(extra); err != nil {
		return CDEntry{}, err
	}
	e.Extra = extra

	comment := make([]byte, commentLen)
	if _, err := r.Read(comment); err != nil {
		return CDEntry{}, err
	}
	e.Comment = comment

	applyZip64Override(&e.CompressedSize, &e.UncompressedSize, &e.LocalHeaderOff, nil, extra)

	return e, nil
}
