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
	"fmt"
	"os"
)

// Signature values for the structures this engine recognizes, little-endian
// on disk.
const (
	sigLocalHeader  = 0x04034b50
	sigCentralDir   = 0x02014b50
	sigEoCD         = 0x06054b50
	sigZip64EoCD    = 0x06064b50
	sigZip64Locator = 0x07064b50
	sigDataDesc     = 0x08074b50
)

// Archive is the immutable handle to the file being read, constructed once
// at Open. extraBytes is the offset of the archive's true start within the
// file (e.g. past a self-extracting stub); it is computed, never declared.
type Archive struct {
	f    *os.File
	size int64

	extraBytes int64

	eocd EoCDRecord
}

// Open opens path and locates its end-of-central-directory record (and,
// if present, its ZIP64 extension), computing extraBytes.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unzip: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("unzip: stat %s: %w", path, err)
	}

	a := &Archive{f: f, size: info.Size()}
	eocd, eocdPos, err := locateEoCD(f, a.size)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.eocd = eocd

	// extra_bytes: the gap between where the CD should end (per the EoCD's
	// own bookkeeping) and where the EoCD was actually observed. A
	// self-extracting stub or other prefix shows up here; it is allowed
	// exactly once (seeded into the overlap cover by the driver).
	cdOffset, cdSize, observedPos := int64(eocd.CDOffset), int64(eocd.CDSize), eocdPos
	if eocd.IsZip64 {
		cdOffset, cdSize, observedPos = eocd.Zip64CDOffset, eocd.Zip64CDSize, eocd.Zip64EoCDStart
	}
	a.extraBytes = observedPos - (cdOffset + cdSize)

	return a, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error { return a.f.Close() }

// Size returns the total file length.
func (a *Archive) Size() int64 { return a.size }

// ExtraBytes returns the computed offset of the archive's true start.
func (a *Archive) ExtraBytes() int64 { return a.extraBytes }

// EoCD returns the parsed end-of-central-directory record.
func (a *Archive) EoCD() EoCDRecord { return a.eocd }

// ReadAt implements io.ReaderAt so bitio.Reader can address the archive
// directly.
func (a *Archive) ReadAt(p []byte, off int64) (int, error) {
	return a.f.ReadAt(p, off)
}
