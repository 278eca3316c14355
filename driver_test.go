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
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fixtureEntry describes one member of a hand-built archive. payload holds
// the bytes exactly as they sit in the file (compressed and/or encrypted
// already); descriptor, if non-nil, is appended verbatim after the payload.
type fixtureEntry struct {
	name       string
	payload    []byte
	method     uint16
	flags      uint16
	crc        uint32
	csize      uint32
	usize      uint32
	modTime    uint16
	modDate    uint16
	descriptor []byte

	// zeroLocal leaves the local header's CRC and sizes zero, as flag
	// bit 3 producers do.
	zeroLocal bool

	// lhoff, when >= 0, overrides the local-header offset recorded in the
	// central directory (used to craft overlapping-member archives).
	lhoff int64

	// cdExtra is appended to the central directory record's extra field.
	cdExtra []byte
}

func appendLocal(buf []byte, e fixtureEntry) []byte {
	var hdr [30]byte
	binary.LittleEndian.PutUint32(hdr[0:], sigLocalHeader)
	binary.LittleEndian.PutUint16(hdr[4:], 20)
	binary.LittleEndian.PutUint16(hdr[6:], e.flags)
	binary.LittleEndian.PutUint16(hdr[8:], e.method)
	binary.LittleEndian.PutUint16(hdr[10:], e.modTime)
	binary.LittleEndian.PutUint16(hdr[12:], e.modDate)
	if !e.zeroLocal {
		binary.LittleEndian.PutUint32(hdr[14:], e.crc)
		binary.LittleEndian.PutUint32(hdr[18:], e.csize)
		binary.LittleEndian.PutUint32(hdr[22:], e.usize)
	}
	binary.LittleEndian.PutUint16(hdr[26:], uint16(len(e.name)))
	buf = append(buf, hdr[:]...)
	buf = append(buf, e.name...)
	buf = append(buf, e.payload...)
	buf = append(buf, e.descriptor...)
	return buf
}

func appendCD(buf []byte, e fixtureEntry, lhoff int64) []byte {
	if e.lhoff >= 0 {
		lhoff = e.lhoff
	}
	var hdr [46]byte
	binary.LittleEndian.PutUint32(hdr[0:], sigCentralDir)
	binary.LittleEndian.PutUint16(hdr[4:], 20)
	binary.LittleEndian.PutUint16(hdr[6:], 20)
	binary.LittleEndian.PutUint16(hdr[8:], e.flags)
	binary.LittleEndian.PutUint16(hdr[10:], e.method)
	binary.LittleEndian.PutUint16(hdr[12:], e.modTime)
	binary.LittleEndian.PutUint16(hdr[14:], e.modDate)
	binary.LittleEndian.PutUint32(hdr[16:], e.crc)
	binary.LittleEndian.PutUint32(hdr[20:], e.csize)
	binary.LittleEndian.PutUint32(hdr[24:], e.usize)
	binary.LittleEndian.PutUint16(hdr[28:], uint16(len(e.name)))
	binary.LittleEndian.PutUint16(hdr[30:], uint16(len(e.cdExtra)))
	binary.LittleEndian.PutUint32(hdr[42:], uint32(lhoff))
	buf = append(buf, hdr[:]...)
	buf = append(buf, e.name...)
	buf = append(buf, e.cdExtra...)
	return buf
}

func appendEoCD(buf []byte, count int, cdOff, cdSize int64) []byte {
	var hdr [22]byte
	binary.LittleEndian.PutUint32(hdr[0:], sigEoCD)
	binary.LittleEndian.PutUint16(hdr[8:], uint16(count))
	binary.LittleEndian.PutUint16(hdr[10:], uint16(count))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(cdSize))
	binary.LittleEndian.PutUint32(hdr[16:], uint32(cdOff))
	return append(buf, hdr[:]...)
}

// buildZip assembles the members into a classic single-disk archive.
func buildZip(entries []fixtureEntry) []byte {
	var buf []byte
	offs := make([]int64, len(entries))
	for i, e := range entries {
		offs[i] = int64(len(buf))
		buf = appendLocal(buf, e)
	}
	cdOff := int64(len(buf))
	for i, e := range entries {
		buf = appendCD(buf, e, offs[i])
	}
	cdSize := int64(len(buf)) - cdOff
	return appendEoCD(buf, len(entries), cdOff, cdSize)
}

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const helloCRC = 0x3610A686

func storedHello() fixtureEntry {
	return fixtureEntry{
		name:    "a.txt",
		payload: []byte("hello"),
		method:  0,
		crc:     helloCRC,
		csize:   5,
		usize:   5,
		modTime: 0x6A28,
		modDate: 0x5A21,
		lhoff:   -1,
	}
}

func TestDriver_EmptyArchive(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, appendEoCD(nil, 0, 0, 0))

	result, err := Run(path, Options{Mode: ModeList})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
	if len(result.Entries) != 0 {
		t.Errorf("Entries = %v, want none", result.Entries)
	}
}

func TestDriver_SingleStoredEntry(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, buildZip([]fixtureEntry{storedHello()}))
	dest := t.TempDir()

	result, err := Run(path, Options{Mode: ModeExtract, Dest: dest})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("a.txt = %q, want %q", got, "hello")
	}
}

func TestDriver_EmptyStoredMember(t *testing.T) {
	t.Parallel()
	e := fixtureEntry{name: "empty", lhoff: -1}
	path := writeArchive(t, buildZip([]fixtureEntry{e}))
	dest := t.TempDir()

	result, err := Run(path, Options{Mode: ModeExtract, Dest: dest})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
	info, err := os.Stat(filepath.Join(dest, "empty"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want 0", info.Size())
	}
}

func TestDriver_BombOnDuplicateOffset(t *testing.T) {
	t.Parallel()
	first := storedHello()
	second := storedHello()
	second.name = "b.txt"
	second.lhoff = 0 // same local header as the first member
	path := writeArchive(t, buildZip([]fixtureEntry{first, second}))
	dest := t.TempDir()

	result, err := Run(path, Options{Mode: ModeExtract, Dest: dest})
	if !errors.Is(err, ErrBomb) {
		t.Fatalf("Run error = %v, want ErrBomb", err)
	}
	if result.Code != ExitBomb {
		t.Errorf("Code = %d, want %d", result.Code, ExitBomb)
	}
	// The first member was already committed before the overlap was seen.
	if _, err := os.Stat(filepath.Join(dest, "a.txt")); err != nil {
		t.Errorf("first member missing: %v", err)
	}
}

// Cipher vectors below were produced with password "secret" over plaintext
// header bytes 01..0b plus the check byte 0x6a (the high byte of modTime
// 0x6a28) and payload "hello".
const (
	encHeaderHex  = "c9a9e13de52e97e73f10dfa6"
	encPayloadHex = "4feb22db1f"
)

type passwordFunc func() []byte

func (f passwordFunc) GetPassword(string, PasswordScope) ([]byte, bool) {
	p := f()
	return p, len(p) > 0
}

func encryptedHello(t *testing.T) fixtureEntry {
	t.Helper()
	header, err := hex.DecodeString(encHeaderHex)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := hex.DecodeString(encPayloadHex)
	if err != nil {
		t.Fatal(err)
	}
	e := storedHello()
	e.name = "secret.txt"
	e.flags = 0x0001
	e.payload = append(header, payload...)
	e.csize = uint32(len(e.payload))
	e.usize = 5
	return e
}

func TestDriver_EncryptedStoredEntry(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, buildZip([]fixtureEntry{encryptedHello(t)}))
	dest := t.TempDir()

	result, err := Run(path, Options{
		Mode:             ModeExtract,
		Dest:             dest,
		PasswordProvider: passwordFunc(func() []byte { return []byte("secret") }),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
	got, err := os.ReadFile(filepath.Join(dest, "secret.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("secret.txt = %q, want %q", got, "hello")
	}
}

func TestDriver_WrongPasswordExitCode(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, buildZip([]fixtureEntry{encryptedHello(t)}))

	result, err := Run(path, Options{
		Mode:             ModeExtract,
		Dest:             t.TempDir(),
		PasswordProvider: passwordFunc(func() []byte { return []byte("bad") }),
	})
	if err == nil {
		t.Fatal("Run succeeded with a wrong password")
	}
	if result.Code != ExitBadPwd {
		t.Errorf("Code = %d, want %d", result.Code, ExitBadPwd)
	}
}

func TestDriver_NoPasswordExitCode(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, buildZip([]fixtureEntry{encryptedHello(t)}))

	result, _ := Run(path, Options{
		Mode:             ModeExtract,
		Dest:             t.TempDir(),
		PasswordProvider: passwordFunc(func() []byte { return nil }),
	})
	if result.Code != ExitBadPwd {
		t.Errorf("Code = %d, want %d", result.Code, ExitBadPwd)
	}
}

func TestDriver_DataDescriptorEntry(t *testing.T) {
	t.Parallel()
	e := storedHello()
	e.flags = 0x0008
	e.zeroLocal = true
	desc := make([]byte, 16)
	binary.LittleEndian.PutUint32(desc[0:], sigDataDesc)
	binary.LittleEndian.PutUint32(desc[4:], helloCRC)
	binary.LittleEndian.PutUint32(desc[8:], 5)
	binary.LittleEndian.PutUint32(desc[12:], 5)
	e.descriptor = desc
	path := writeArchive(t, buildZip([]fixtureEntry{e}))
	dest := t.TempDir()

	result, err := Run(path, Options{Mode: ModeExtract, Dest: dest})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("a.txt = %q, want %q", got, "hello")
	}
}

func TestDriver_SFXStubPrefix(t *testing.T) {
	t.Parallel()
	plain := buildZip([]fixtureEntry{storedHello()})
	stub := make([]byte, 64)
	copy(stub, "#!/bin/sh\nself-extracting stub\n")
	path := writeArchive(t, append(stub, plain...))
	dest := t.TempDir()

	result, err := Run(path, Options{Mode: ModeExtract, Dest: dest})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("a.txt = %q, want %q", got, "hello")
	}
}

func TestDriver_SurplusCDRecordsWarn(t *testing.T) {
	t.Parallel()
	e := storedHello()
	var buf []byte
	buf = appendLocal(buf, e)
	cdOff := int64(len(buf))
	buf = appendCD(buf, e, 0)
	surplus := e
	surplus.name = "extra.txt"
	buf = appendCD(buf, surplus, 0)
	cdSize := int64(len(buf)) - cdOff
	buf = appendEoCD(buf, 1, cdOff, cdSize) // declares one entry, CD holds two
	path := writeArchive(t, buf)
	dest := t.TempDir()

	result, _ := Run(path, Options{Mode: ModeExtract, Dest: dest})
	if result.Code != ExitWarn {
		t.Errorf("Code = %d, want %d", result.Code, ExitWarn)
	}
	if _, err := os.Stat(filepath.Join(dest, "a.txt")); err != nil {
		t.Errorf("declared member missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "extra.txt")); err == nil {
		t.Error("surplus member was extracted")
	}
}

func TestDriver_UnsupportedMethodSkipped(t *testing.T) {
	t.Parallel()
	lzma := storedHello()
	lzma.name = "packed.lzma"
	lzma.method = 14
	path := writeArchive(t, buildZip([]fixtureEntry{lzma, storedHello()}))
	dest := t.TempDir()

	result, _ := Run(path, Options{Mode: ModeExtract, Dest: dest})
	if result.Code != ExitUnsup {
		t.Errorf("Code = %d, want %d", result.Code, ExitUnsup)
	}
	if _, err := os.Stat(filepath.Join(dest, "a.txt")); err != nil {
		t.Errorf("supported member missing: %v", err)
	}
}

func TestDriver_IncludePatternUnmatched(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, buildZip([]fixtureEntry{storedHello()}))

	result, err := Run(path, Options{
		Mode:    ModeExtract,
		Dest:    t.TempDir(),
		Include: []string{"*.doc"},
	})
	if !errors.Is(err, ErrPatternUnmatched) {
		t.Fatalf("Run error = %v, want ErrPatternUnmatched", err)
	}
	if result.Code != ExitFind {
		t.Errorf("Code = %d, want %d", result.Code, ExitFind)
	}
}

func TestDriver_TestModeBadCRC(t *testing.T) {
	t.Parallel()
	e := storedHello()
	e.crc = 0xDEADBEEF
	path := writeArchive(t, buildZip([]fixtureEntry{e}))

	result, err := Run(path, Options{Mode: ModeTest})
	if !errors.Is(err, ErrBadCRC) {
		t.Fatalf("Run error = %v, want ErrBadCRC", err)
	}
	if result.Code != ExitErr {
		t.Errorf("Code = %d, want %d", result.Code, ExitErr)
	}
}

func TestDriver_TestModeCleanArchive(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, buildZip([]fixtureEntry{storedHello()}))

	result, err := Run(path, Options{Mode: ModeTest})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
}

func TestDriver_ListMode(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, buildZip([]fixtureEntry{storedHello()}))

	result, err := Run(path, Options{Mode: ModeList})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("Entries = %d, want 1", len(result.Entries))
	}
	e := result.Entries[0]
	if e.Name != "a.txt" || e.CompressedSize != 5 || e.UncompressedSize != 5 || e.CRC32 != helloCRC {
		t.Errorf("unexpected listing: %+v", e)
	}
}

func TestDriver_ExcludePattern(t *testing.T) {
	t.Parallel()
	second := storedHello()
	second.name = "b.log"
	path := writeArchive(t, buildZip([]fixtureEntry{storedHello(), second}))
	dest := t.TempDir()

	result, err := Run(path, Options{Mode: ModeExtract, Dest: dest, Exclude: []string{"*.log"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
	if _, err := os.Stat(filepath.Join(dest, "b.log")); err == nil {
		t.Error("excluded member was extracted")
	}
}

func TestDriver_Idempotent(t *testing.T) {
	t.Parallel()
	path := writeArchive(t, buildZip([]fixtureEntry{storedHello()}))
	dest := t.TempDir()

	for i := 0; i < 2; i++ {
		result, err := Run(path, Options{Mode: ModeExtract, Dest: dest, Overwrite: AlwaysOverwrite{}})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if result.Code != ExitOK {
			t.Errorf("run %d: Code = %d, want %d", i, result.Code, ExitOK)
		}
		got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "hello" {
			t.Errorf("run %d: a.txt = %q", i, got)
		}
	}
}

func TestDriver_Zip64Archive(t *testing.T) {
	t.Parallel()
	e := storedHello()

	var buf []byte
	buf = appendLocal(buf, e)
	cdOff := int64(len(buf))

	// The central record carries sentinel sizes resolved by a ZIP64
	// extended-info extra block.
	sentinel := e
	sentinel.csize = 0xFFFFFFFF
	sentinel.usize = 0xFFFFFFFF
	extra := make([]byte, 4+16)
	binary.LittleEndian.PutUint16(extra[0:], 0x0001)
	binary.LittleEndian.PutUint16(extra[2:], 16)
	binary.LittleEndian.PutUint64(extra[4:], 5)  // uncompressed
	binary.LittleEndian.PutUint64(extra[12:], 5) // compressed
	sentinel.cdExtra = extra
	buf = appendCD(buf, sentinel, 0)
	cdSize := int64(len(buf)) - cdOff

	z64Off := int64(len(buf))
	var z64 [56]byte
	binary.LittleEndian.PutUint32(z64[0:], sigZip64EoCD)
	binary.LittleEndian.PutUint64(z64[4:], 44) // record size, minus the 12-byte prefix
	binary.LittleEndian.PutUint64(z64[24:], 1) // entries on this disk
	binary.LittleEndian.PutUint64(z64[32:], 1) // entries total
	binary.LittleEndian.PutUint64(z64[40:], uint64(cdSize))
	binary.LittleEndian.PutUint64(z64[48:], uint64(cdOff))
	buf = append(buf, z64[:]...)

	var loc [20]byte
	binary.LittleEndian.PutUint32(loc[0:], sigZip64Locator)
	binary.LittleEndian.PutUint64(loc[8:], uint64(z64Off))
	binary.LittleEndian.PutUint32(loc[16:], 1) // total disks
	buf = append(buf, loc[:]...)

	buf = appendEoCD(buf, 1, cdOff, cdSize)
	path := writeArchive(t, buf)
	dest := t.TempDir()

	result, err := Run(path, Options{Mode: ModeExtract, Dest: dest})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Code != ExitOK {
		t.Errorf("Code = %d, want %d", result.Code, ExitOK)
	}
	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("a.txt = %q, want %q", got, "hello")
	}
}
