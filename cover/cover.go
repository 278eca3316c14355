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

// Package cover implements the overlap/bomb detector: a sorted, disjoint set
// of byte spans covering everything a run has already "claimed" from the
// archive. Every new claim must land in a gap; an overlapping claim means
// the archive is attempting quadratic-amplification ("zip bomb") structure.
package cover

import (
	"errors"
	"sort"
)

// ErrOverlap is returned by Add when the requested span intersects a span
// already in the cover.
var ErrOverlap = errors.New("cover: span overlaps an existing claim")

// ErrInvalid is returned by Add when beg >= end.
var ErrInvalid = errors.New("cover: span has beg >= end")

// Span is a half-open byte range [Beg, End).
type Span struct {
	Beg, End int64
}

// Cover is a sorted, disjoint set of spans. The zero value is an empty
// cover ready to use.
type Cover struct {
	spans []Span
}

// New returns an empty Cover.
func New() *Cover { return &Cover{} }

// Len reports the number of disjoint spans currently held.
func (c *Cover) Len() int { return len(c.spans) }

// Add claims [beg, end). It merges with adjacent spans so that no two
// consecutive spans in the backing slice ever satisfy a.End == b.Beg, and
// rejects any span that intersects an existing one.
func (c *Cover) Add(beg, end int64) error {
	if beg >= end {
		return ErrInvalid
	}

	// Find the first span whose End is > beg: candidate insertion point.
	i := sort.Search(len(c.spans), func(i int) bool { return c.spans[i].End > beg })

	// Check for overlap against the span to the left (if any) and right.
	if i > 0 && c.spans[i-1].End > beg {
		return ErrOverlap
	}
	if i < len(c.spans) && c.spans[i].Beg < end {
		return ErrOverlap
	}

	merged := Span{Beg: beg, End: end}
	lo, hi := i, i
	if i > 0 && c.spans[i-1].End == beg {
		merged.Beg = c.spans[i-1].Beg
		lo = i - 1
	}
	if i < len(c.spans) && c.spans[i].Beg == end {
		merged.End = c.spans[i].End
		hi = i + 1
	}

	out := make([]Span, 0, len(c.spans)-(hi-lo)+1)
	out = append(out, c.spans[:lo]...)
	out = append(out, merged)
	out = append(out, c.spans[hi:]...)
	c.spans = out
	return nil
}

// Contains reports whether v falls inside any claimed span.
func (c *Cover) Contains(v int64) bool {
	i := sort.Search(len(c.spans), func(i int) bool { return c.spans[i].End > v })
	return i < len(c.spans) && c.spans[i].Beg <= v
}

// Overlaps reports whether [beg, end) would intersect an existing span,
// without mutating the cover. Used by callers that want to test-before-add
// on a hot path where the error path of Add would otherwise be taken every
// time (e.g. the per-entry extractor's local-header-offset bomb check).
func (c *Cover) Overlaps(beg, end int64) bool {
	i := sort.Search(len(c.spans), func(i int) bool { return c.spans[i].End > beg })
	return i < len(c.spans) && c.spans[i].Beg < end
}

// Spans returns a copy of the current disjoint span set, sorted ascending.
func (c *Cover) Spans() []Span {
	out := make([]Span, len(c.spans))
	copy(out, c.spans)
	return out
}
