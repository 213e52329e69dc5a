/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package event lets front-ends and ambient services react to workspace
// changes without the workspace depending on them.
package event

import (
	"fmt"
	"sync"

	"gowhiteboard/internal/domain"
	applog "gowhiteboard/internal/log"
)

type Type int

const (
	ElementUpdated Type = iota
	ElementSelected
	ElementAdded
	ElementDeleted
	BoardCreated
	BoardActivated
	BoardDeleted
	BoardRenamed
	BoardRestored
)

var typeNames = map[Type]string{
	ElementUpdated:  "element.updated",
	ElementSelected: "element.selected",
	ElementAdded:    "element.added",
	ElementDeleted:  "element.deleted",
	BoardCreated:    "board.created",
	BoardActivated:  "board.activated",
	BoardDeleted:    "board.deleted",
	BoardRenamed:    "board.renamed",
	BoardRestored:   "board.restored",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is one notification. BoardID is always set; Ref is set for element
// events (Ref.ID is empty for ElementSelected when the selection was cleared).
// Patch is set for ElementUpdated.
type Event struct {
	Type     Type
	BoardID  string
	Ref      domain.Ref
	Patch    domain.Patch
	Template string
}

type Handler func(Event)

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine. A panicking handler is logged and skipped.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Type][]sub
	all    []sub
	nextID int
}

type sub struct {
	id int
	h  Handler
}

func NewBus() *Bus { return &Bus{subs: make(map[Type][]sub)} }

// Subscribe registers h for t and returns a function that removes it.
func (b *Bus) Subscribe(t Type, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], sub{id: id, h: h})
	return func() { b.remove(t, id, false) }
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, sub{id: id, h: h})
	return func() { b.remove(0, id, true) }
}

func (b *Bus) remove(t Type, id int, all bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[t]
	if all {
		list = b.all
	}
	for i, s := range list {
		if s.id == id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if all {
		b.all = list
	} else {
		b.subs[t] = list
	}
}

// Publish calls every handler for e.Type, then every catch-all handler.
// Handlers may publish or subscribe re-entrantly.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.subs[e.Type])+len(b.all))
	for _, s := range b.subs[e.Type] {
		hs = append(hs, s.h)
	}
	for _, s := range b.all {
		hs = append(hs, s.h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		call(h, e)
	}
}

func call(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			applog.WithComponent("event").Error("handler panic", "event", e.Type.String(), "board", e.BoardID, "panic", fmt.Sprint(r))
		}
	}()
	h(e)
}
