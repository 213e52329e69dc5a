/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gowhiteboard/internal/event"

	"go.uber.org/goleak"
)

type recorder struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
}

func (r *recorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.events = append(r.events, b)
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.crashes = append(r.crashes, b)
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func (r *recorder) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// waitFor polls cond for up to two seconds.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_EventAndUploadCrash(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	rec := &recorder{}
	srv := rec.server(t)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	c.Event("started", map[string]any{"k": "v"})
	c.Flush(context.Background())
	waitFor(t, func() bool { return rec.eventCount() > 0 })

	rec.mu.Lock()
	first := rec.events[0]
	rec.mu.Unlock()
	var m map[string]any
	if err := json.Unmarshal(first, &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "started" || m["k"] != "v" {
		t.Fatalf("event payload = %v", m)
	}
	if _, ok := m["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}

	// UploadCrash is synchronous.
	c.UploadCrash([]byte("STACKTRACE"))
	rec.mu.Lock()
	n := len(rec.crashes)
	rec.mu.Unlock()
	if n != 1 {
		t.Fatalf("crash uploads = %d, want 1", n)
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(nil)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
}

// An unroutable address exercises the error paths without panicking.
func TestClient_SendErrors(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
}

func TestForwardBoardCreated(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	rec := &recorder{}
	srv := rec.server(t)
	defer srv.Close()
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c.Close()

	bus := event.NewBus()
	unsub := c.Forward(bus)
	bus.Publish(event.Event{Type: event.BoardActivated, BoardID: "b1"})
	bus.Publish(event.Event{Type: event.BoardCreated, BoardID: "b1", Template: "mindmap"})
	waitFor(t, func() bool { return rec.eventCount() == 1 })

	rec.mu.Lock()
	var m map[string]any
	_ = json.Unmarshal(rec.events[0], &m)
	rec.mu.Unlock()
	if m["name"] != "board.created" || m["template"] != "mindmap" {
		t.Fatalf("forwarded payload = %v", m)
	}
	if _, leaked := m["board"]; leaked {
		t.Fatalf("board id must not be sent")
	}

	unsub()
	bus.Publish(event.Event{Type: event.BoardCreated, BoardID: "b2"})
	c.Flush(context.Background())
	time.Sleep(50 * time.Millisecond)
	if rec.eventCount() != 1 {
		t.Fatalf("event sent after unsubscribe")
	}
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv("GWB_TELEMETRY_OPT_IN", "true")
	t.Setenv("GWB_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("GWB_CRASH_UPLOAD_URL", "")
	t.Setenv("GWB_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	SetDefault(New(cfg))
	defer SetDefault(nil)
	if !Enabled() {
		t.Fatalf("default Enabled should be true with env config")
	}
}
