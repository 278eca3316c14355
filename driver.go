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
	"time"

	"github.com/jopamo/infozip-utils/bitio"
)

// maxSupportedVersion is the highest "version needed to extract" this
// engine honors. Anything newer implies features (strong encryption,
// post-deflate64 methods) it does not decode.
const maxSupportedVersion = 63

// ListEntry is one member's metadata as surfaced by ModeList, independent
// of whether its codec family is actually supported.
type ListEntry struct {
	Name             string
	Method           uint16
	CompressedSize   int64
	UncompressedSize int64
	CRC32            uint32
	ModTime          time.Time
	IsDir            bool
}

// Result summarizes a completed driver run: the worst-severity exit code
// seen across every entry (the "monotone worst error" rule), plus
// the listing when Mode is ModeList.
type Result struct {
	Code    ExitCode
	Entries []ListEntry
}

// Run opens archivePath and drives extraction, testing, or listing per
// opts.Mode: locate the EoCD, seed the overlap cover with every structural
// extent already known (leading stub, central directory, ZIP64 EoCD/
// locator, classic EoCD), then walk the central directory in
// Options.BatchSize-sized batches, filtering and dispatching each
// surviving entry.
func Run(archivePath string, opts Options) (Result, error) {
	arc, err := Open(archivePath)
	if err != nil {
		return Result{Code: ExitBadZip}, err
	}
	defer arc.Close()

	ctx := NewContext(opts)
	eocd := arc.EoCD()
	var worst worstError

	seed := func(beg, end int64, what string) error {
		if end <= beg {
			return nil
		}
		if err := ctx.Cover.Add(beg, end); err != nil {
			e := fmt.Errorf("%w: %s", ErrBomb, what)
			worst.note(e)
			return e
		}
		return nil
	}

	if err := seed(0, arc.ExtraBytes(), "leading stub"); err != nil {
		return Result{Code: worst.code()}, err
	}

	cdOffset, cdSize := int64(eocd.CDOffset)+arc.ExtraBytes(), int64(eocd.CDSize)
	if eocd.IsZip64 {
		cdOffset, cdSize = eocd.Zip64CDOffset+arc.ExtraBytes(), eocd.Zip64CDSize
	}
	if err := seed(cdOffset, cdOffset+cdSize, "central directory"); err != nil {
		return Result{Code: worst.code()}, err
	}
	if eocd.IsZip64 {
		if err := seed(eocd.LocatorStart, eocd.LocatorEnd, "zip64 locator"); err != nil {
			return Result{Code: worst.code()}, err
		}
		if err := seed(eocd.Zip64EoCDStart, eocd.Zip64EoCDEnd, "zip64 end of central directory"); err != nil {
			return Result{Code: worst.code()}, err
		}
	}
	if err := seed(eocd.ClassicEoCDBeg, eocd.ClassicEoCDEnd, "end of central directory"); err != nil {
		return Result{Code: worst.code()}, err
	}

	r := bitio.NewReader(arc, arc.Size())
	r.Seek(cdOffset)

	matcher := opts.matcher()
	includeMatched := make([]bool, len(opts.Include))
	excludeMatched := make([]bool, len(opts.Exclude))

	var result Result
	var st extractorState
	var count int64
	batch := int64(opts.batchSize())

	for count < eocd.TotalEntries {
		n := batch
		if remaining := eocd.TotalEntries - count; n > remaining {
			n = remaining
		}

		// Collect the whole batch from the central directory first, then
		// save the CD cursor before dispatching extraction: the extractor
		// reuses the same reader to seek into local headers and payloads,
		// and the next batch must resume exactly where this one stopped.
		type batchEntry struct {
			cde     CDEntry
			isFirst bool
		}
		entries := make([]batchEntry, 0, n)
		for i := int64(0); i < n; i++ {
			cde, err := readCDEntry(r)
			if err != nil {
				worst.note(err)
				return Result{Code: worst.code()}, err
			}
			entries = append(entries, batchEntry{cde: cde, isFirst: count == 0})
			count++
		}
		cdCursor := r.Tell()

		for _, be := range entries {
			cde := be.cde

			included := len(opts.Include) == 0
			for pi, pat := range opts.Include {
				ok, _ := matcher.Match(cde.Name, pat, opts.CaseInsensitiveMatch)
				if ok {
					included = true
					includeMatched[pi] = true
				}
			}
			excluded := false
			for pi, pat := range opts.Exclude {
				ok, _ := matcher.Match(cde.Name, pat, opts.CaseInsensitiveMatch)
				if ok {
					excluded = true
					excludeMatched[pi] = true
				}
			}
			if !included || excluded {
				continue
			}

			if opts.Mode == ModeList {
				result.Entries = append(result.Entries, ListEntry{
					Name:             cde.Name,
					Method:           cde.Method,
					CompressedSize:   cde.CompressedSize,
					UncompressedSize: cde.UncompressedSize,
					CRC32:            cde.CRC32,
					ModTime:          dosTimeToTime(cde.ModDate, cde.ModTime),
					IsDir:            cde.IsDir(),
				})
				continue
			}

			if cde.VersionNeeded > maxSupportedVersion {
				e := fmt.Errorf("%w: entry %q needs version %d", ErrUnsupportedVersion, cde.Name, cde.VersionNeeded)
				worst.note(e)
				ctx.Diagnostics.Warnf("%v", e)
				continue
			}

			outcome, err := extractEntry(ctx, arc, r, cde, be.isFirst, &st)
			switch outcome {
			case entryBomb, entryFatal:
				worst.note(err)
				return Result{Code: worst.code()}, err
			case entrySkipped:
				worst.note(err)
				ctx.Diagnostics.Warnf("entry %q: %v", cde.Name, err)
			}
		}

		r.Seek(cdCursor)
	}

	// The declared entry count has been consumed; whatever follows must be
	// the EoCD (or ZIP64 EoCD) marker. A further CD header means the EoCD
	// under-counted — a structural warning, with the surplus records left
	// unextracted.
	var trailing [4]byte
	if _, err := r.Read(trailing[:]); err == nil {
		switch binary.LittleEndian.Uint32(trailing[:]) {
		case sigEoCD, sigZip64EoCD, sigZip64Locator:
		case sigCentralDir:
			// Surplus records are a producer bug, not a refusal: the first
			// TotalEntries members were still extracted, so this only
			// raises the run to a warning.
			worst.warn(fmt.Errorf("%w: central directory holds more records than the end record declares", ErrBadHeader))
			ctx.Diagnostics.Warnf("central directory holds more records than the end record declares")
		default:
			e := fmt.Errorf("%w: expected end-of-central-directory marker after last entry", ErrBadSignature)
			worst.note(e)
			ctx.Diagnostics.Warnf("%v", e)
		}
	}

	if opts.Mode == ModeExtract {
		if fs, ok := ctx.Sink.(*FilesystemSink); ok {
			ctx.Symlinks.drain(opts.Dest, ctx.Diagnostics)
			fs.FixupDirectories()
		}
	}

	for pi, matched := range includeMatched {
		if !matched {
			e := fmt.Errorf("%w: %q", ErrPatternUnmatched, opts.Include[pi])
			worst.note(e)
			ctx.Diagnostics.Warnf("%v", e)
		}
	}
	for pi, matched := range excludeMatched {
		if !matched {
			ctx.Diagnostics.Warnf("exclude pattern %q matched nothing", opts.Exclude[pi])
		}
	}

	result.Code = worst.code()
	return result, worst.cause()
}
