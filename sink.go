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
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// OpenResult names the outcomes Sink.Open can report.
type OpenResult int

const (
	OpenOK OpenResult = iota
	OpenSkipOK
	OpenSkipWarn
	OpenDisk
)

// EntryMeta carries the metadata a Sink needs to finish materializing a
// member once its bytes are written: permissions, times, and (for a
// deferred symlink) the link target.
type EntryMeta struct {
	Name       string
	ModTime    time.Time
	Mode       os.FileMode
	IsDir      bool
	IsSymlink  bool
	LinkTarget string
	HostOS     byte // CD external-attributes host OS, for the unix-mode heuristic
}

// Sink is the filesystem collaborator: directory
// creation, permission/time application, and symlink materialization. This
// module ships a default so cmd/unzip runs end to end; callers may supply
// their own (e.g. the in-memory façade's sink, or a test double).
type Sink interface {
	Open(path string, meta EntryMeta) (io.WriteCloser, OpenResult, error)
	Close(w io.WriteCloser, meta EntryMeta) error
}

// FilesystemSink is the default Sink: it creates parent directories lazily
// and applies permissions/mtimes on Close. Symlinks never pass through it:
// the extractor queues them and the driver creates them after the last CD
// batch, so link targets exist.
type FilesystemSink struct {
	Dest string

	// Policy decides what happens when a member's target path already
	// exists. nil means overwrite.
	Policy OverwritePolicy

	// deferredDirs collects directories seen so their timestamps can be
	// fixed up deepest-first after every member has been written — child
	// creation otherwise rewrites a parent's mtime.
	deferredDirs map[string]time.Time
}

// NewFilesystemSink returns a Sink rooted at dest. dest is created on first
// use, not eagerly.
func NewFilesystemSink(dest string) *FilesystemSink {
	return &FilesystemSink{Dest: dest, deferredDirs: map[string]time.Time{}}
}

// resolve joins name onto Dest, rejecting any path that would escape Dest
// via ".." segments or an absolute path (a zip-slip guard).
func (s *FilesystemSink) resolve(name string) (string, error) {
	clean := filepath.Clean(strings.ReplaceAll(name, "\\", "/"))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("unzip: entry path %q escapes destination", name)
	}
	full := filepath.Join(s.Dest, clean)
	if !strings.HasPrefix(full, filepath.Clean(s.Dest)+string(filepath.Separator)) && full != filepath.Clean(s.Dest) {
		return "", fmt.Errorf("unzip: entry path %q escapes destination", name)
	}
	return full, nil
}

// Open implements Sink. Directories are recorded (for the deferred
// deepest-first timestamp pass) and not opened for writing; symlinks are
// queued by the caller (entry.go), not through this method.
func (s *FilesystemSink) Open(path string, meta EntryMeta) (io.WriteCloser, OpenResult, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, OpenSkipWarn, err
	}
	if meta.IsDir {
		if err := os.MkdirAll(full, 0o777); err != nil {
			return nil, OpenDisk, fmt.Errorf("unzip: mkdir %s: %w", full, err)
		}
		if s.deferredDirs == nil {
			s.deferredDirs = map[string]time.Time{}
		}
		s.deferredDirs[full] = meta.ModTime
		return nil, OpenSkipOK, nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o777); err != nil {
		return nil, OpenDisk, fmt.Errorf("unzip: mkdir %s: %w", filepath.Dir(full), err)
	}
	if s.Policy != nil {
		if _, err := os.Lstat(full); err == nil {
			decision, newName := s.Policy.Decide(full)
			switch decision {
			case OverwriteYes, OverwriteAll:
			case OverwriteRename:
				renamed, err := s.resolve(newName)
				if err != nil {
					return nil, OpenSkipWarn, err
				}
				full = renamed
			default:
				return nil, OpenSkipOK, nil
			}
		}
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, OpenDisk, fmt.Errorf("unzip: open %s: %w", full, err)
		}
		return nil, OpenDisk, err
	}
	return f, OpenOK, nil
}

// Close applies the entry's permissions and modification time.
func (s *FilesystemSink) Close(w io.WriteCloser, meta EntryMeta) error {
	if w == nil {
		return nil
	}
	if err := w.Close(); err != nil {
		return err
	}
	if f, ok := w.(*os.File); ok {
		if meta.Mode != 0 {
			_ = os.Chmod(f.Name(), meta.Mode)
		}
		if !meta.ModTime.IsZero() {
			_ = os.Chtimes(f.Name(), meta.ModTime, meta.ModTime)
		}
	}
	return nil
}

// FixupDirectories applies deferred directory timestamps, deepest-path
// first, so a child's creation doesn't rewrite its parent's mtime after
// the parent was already stamped.
func (s *FilesystemSink) FixupDirectories() {
	paths := make([]string, 0, len(s.deferredDirs))
	for p := range s.deferredDirs {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		return strings.Count(paths[i], string(filepath.Separator)) > strings.Count(paths[j], string(filepath.Separator))
	})
	for _, p := range paths {
		t := s.deferredDirs[p]
		if !t.IsZero() {
			_ = os.Chtimes(p, t, t)
		}
	}
}
