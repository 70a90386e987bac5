/*
Copyright 2026 The Bors Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clarketm/bors/queue"
)

type fakeSource struct {
	bcast *queue.Broadcaster
}

func (f *fakeSource) Snapshots() *queue.Broadcaster { return f.bcast }

func TestHandleSnapshotReturnsLatestPerRepo(t *testing.T) {
	bcast := queue.NewBroadcaster()
	src := &fakeSource{bcast: bcast}
	srv := New(nil, src)

	// Publish before the handler subscribes would be lost; instead
	// subscribe via a background publisher started right before the
	// request, polling until delivered.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			bcast.Publish(queue.Pool{Repo: "acme/widgets", Action: queue.ActionNone, Ticked: time.Now()})
			time.Sleep(time.Millisecond)
		}
	}()
	<-done

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()
	srv.handleSnapshot(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got map[string]queue.Pool
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHandleWebSocketStreamsUpdates(t *testing.T) {
	bcast := queue.NewBroadcaster()
	src := &fakeSource{bcast: bcast}
	srv := New(nil, src)

	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Publish repeatedly: the server subscribes asynchronously after
	// the WebSocket handshake completes, so the first few publishes
	// may occur before that subscription is registered and are
	// silently dropped.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bcast.Publish(queue.Pool{Repo: "acme/widgets", Action: queue.ActionStartBuild, Candidate: 7, Ticked: time.Now()})
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var p queue.Pool
	if err := conn.ReadJSON(&p); err != nil {
		t.Fatalf("read: %v", err)
	}
	if p.Repo != "acme/widgets" || p.Candidate != 7 {
		t.Fatalf("unexpected pool update: %+v", p)
	}
}
