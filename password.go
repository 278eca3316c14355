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
	"bufio"
	"fmt"
	"io"
	"os"
)

// PasswordScope identifies what the password prompt is for, so a provider
// can decide whether to reuse a previously entered password.
type PasswordScope struct {
	ArchivePath string
	EntryName   string
}

// PasswordProvider is the external collaborator that supplies a password
// for an encrypted entry, or reports that none is available.
type PasswordProvider interface {
	GetPassword(prompt string, scope PasswordScope) ([]byte, bool)
}

// StdinPasswordProvider prompts on stdin. It has no echo-suppression
// dependency; the prompt falls back to a plain visible read.
type StdinPasswordProvider struct {
	// Cached remembers the last password entered so repeated prompts for
	// the same archive don't re-ask the user for every encrypted member.
	cached []byte
	asked  bool
}

// GetPassword implements PasswordProvider.
func (p *StdinPasswordProvider) GetPassword(prompt string, _ PasswordScope) ([]byte, bool) {
	if p.asked {
		return p.cached, len(p.cached) > 0
	}
	p.asked = true
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, false
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	p.cached = []byte(line)
	return p.cached, len(p.cached) > 0
}
