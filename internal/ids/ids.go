/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ids allocates element and board identifiers. A single Allocator is
// shared by everything that creates elements so ids never collide across kinds.
package ids

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Allocator hands out fresh identifiers. Implementations must be safe for
// concurrent use.
type Allocator interface {
	Next() string
}

// UUID allocates random RFC 4122 version 4 ids.
type UUID struct{}

func (UUID) Next() string { return uuid.NewString() }

// Sequence allocates "<prefix><n>" with n counting up from 1. It is meant for
// tests and reproducible fixtures.
type Sequence struct {
	Prefix string
	n      atomic.Uint64
}

// NewSequence returns a Sequence using prefix.
func NewSequence(prefix string) *Sequence { return &Sequence{Prefix: prefix} }

func (s *Sequence) Next() string {
	return s.Prefix + strconv.FormatUint(s.n.Add(1), 10)
}

var def atomic.Pointer[Allocator]

func init() {
	var a Allocator = UUID{}
	def.Store(&a)
}

// Default returns the process-wide allocator.
func Default() Allocator { return *def.Load() }

// SetDefault replaces the process-wide allocator and returns the previous one.
func SetDefault(a Allocator) Allocator {
	prev := def.Swap(&a)
	return *prev
}
