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
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// memberCacheSize bounds the shared decoded-member cache's admission
// window; tinylfu.New's second argument is the sample count over which
// admission frequency is estimated, following the roughly 10x-capacity
// ratio the pack's own tinylfu callers use.
const memberCacheSize = 256

// memberCache memoizes decoded member bytes across repeated ExtractToMemory
// calls, keyed by archive path, entry name, and declared CRC-32 so a
// changed archive never serves stale bytes. tinylfu.T is not safe for
// concurrent use on its own, so access is serialized with a mutex — the
// in-memory façade's own concurrency note.
type memberCache struct {
	mu sync.Mutex
	t  *tinylfu.T[string, []byte]
}

func newMemberCache() *memberCache {
	return &memberCache{t: tinylfu.New[string, []byte](memberCacheSize, memberCacheSize*10, cacheKeyHash)}
}

func cacheKeyHash(k string) uint64 { return xxhash.Sum64String(k) }

func (c *memberCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.Get(key)
}

func (c *memberCache) add(key string, v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t.Add(key, v)
}

// defaultMemberCache is shared across every ExtractToMemory call in the
// process, so pulling the same archive's members twice (e.g. a build tool
// re-reading a dependency zip across targets) skips re-decoding unchanged
// members entirely.
var defaultMemberCache = newMemberCache()

func memberCacheKey(archivePath, name string, crc uint32) string {
	return fmt.Sprintf("%s\x00%s\x00%08x", archivePath, name, crc)
}

// exactMatcher replaces the default glob Matcher for ExtractToMemory's
// internal re-dispatch: the set of names still needing a real decode is
// exact, not a glob, and entry names may contain glob metacharacters
// ("[", "]", "*") that doublestar would otherwise interpret.
type exactMatcher struct{}

func (exactMatcher) Match(name, pattern string, caseInsensitive bool) (bool, error) {
	if caseInsensitive {
		return strings.EqualFold(name, pattern), nil
	}
	return name == pattern, nil
}

// memoryWriter accumulates one member's decoded bytes; Close hands them to
// the owning memorySink's result map. The shared cache is populated by
// ExtractToMemory afterwards, once each member's declared CRC-32 (learned
// from the earlier listing pass) is available to build its cache key.
type memoryWriter struct {
	name string
	buf  bytes.Buffer
	sink *memorySink
}

func (w *memoryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memoryWriter) Close() error {
	w.sink.out[w.name] = append([]byte(nil), w.buf.Bytes()...)
	return nil
}

// memorySink is a Sink that materializes every non-directory, non-symlink
// member into an in-memory buffer instead of the filesystem.
type memorySink struct {
	archivePath string
	out         map[string][]byte
}

func (s *memorySink) Open(path string, meta EntryMeta) (io.WriteCloser, OpenResult, error) {
	if meta.IsDir {
		return nil, OpenSkipOK, nil
	}
	return &memoryWriter{name: path, sink: s}, OpenOK, nil
}

func (s *memorySink) Close(w io.WriteCloser, _ EntryMeta) error {
	if w == nil {
		return nil
	}
	return w.Close()
}

// ExtractToMemory decodes archivePath's members into a name-to-bytes map
// without ever touching the filesystem. It first lists the central directory to learn each
// member's declared CRC-32, serves whatever the shared cache already holds
// for that exact (archive, name, CRC) triple, and only re-dispatches the
// driver — via an exact-name Include filter — for members that actually
// need decoding.
func ExtractToMemory(archivePath string, opts Options) (map[string][]byte, error) {
	listOpts := opts
	listOpts.Mode = ModeList
	listOpts.Matcher = nil
	listOpts.Include = nil
	listOpts.Exclude = nil

	listResult, err := Run(archivePath, listOpts)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(listResult.Entries))
	var need []string
	keys := make(map[string]string, len(listResult.Entries))

	for _, e := range listResult.Entries {
		if e.IsDir {
			continue
		}
		key := memberCacheKey(archivePath, e.Name, e.CRC32)
		keys[e.Name] = key
		if cached, ok := defaultMemberCache.get(key); ok {
			out[e.Name] = cached
			continue
		}
		need = append(need, e.Name)
	}

	if len(need) > 0 {
		sink := &memorySink{archivePath: archivePath, out: out}
		extractOpts := opts
		extractOpts.Mode = ModeExtract
		extractOpts.Sink = sink
		extractOpts.Matcher = exactMatcher{}
		extractOpts.Include = need
		extractOpts.Exclude = nil

		if _, err := Run(archivePath, extractOpts); err != nil {
			return out, err
		}
		for _, name := range need {
			if b, ok := out[name]; ok {
				defaultMemberCache.add(keys[name], b)
			}
		}
	}

	return out, nil
}
