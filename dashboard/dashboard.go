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

// Package dashboard serves the merge queue's live state over HTTP: a
// JSON snapshot for simple pollers, and a WebSocket stream of Pool
// updates for anything that wants to watch the queue move in real
// time (including borsctl's TUI).
package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/clarketm/bors/queue"
)

const (
	pingInterval = 30 * time.Second
	pongTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
)

// Source is the subset of *queue.Engine the dashboard depends on.
type Source interface {
	Snapshots() *queue.Broadcaster
}

// Server serves the dashboard's HTTP and WebSocket endpoints.
type Server struct {
	logger   *logrus.Entry
	source   Source
	upgrader websocket.Upgrader
}

// New builds a Server that reads live updates from source.
func New(logger *logrus.Entry, source Source) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		logger: logger.WithField("component", "dashboard"),
		source: source,
		upgrader: websocket.Upgrader{
			// The dashboard is same-origin in production deployments;
			// CheckOrigin stays permissive for the common case of a
			// dashboard served behind a reverse proxy on another host.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the http.Handler to mount, with "/snapshot" serving
// the last known Pool per repository and "/ws" streaming live updates.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sub := s.source.Snapshots().Subscribe()
	defer s.source.Snapshots().Unsubscribe(sub)

	// Drain whatever is already queued without blocking, to build the
	// best-effort current view; the dashboard's WebSocket endpoint is
	// the source of truth for anything more live than this.
	snapshot := make(map[string]queue.Pool)
	for {
		select {
		case p := <-sub:
			snapshot[p.Repo] = p
		default:
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(snapshot); err != nil {
				s.logger.WithError(err).Warn("failed to encode snapshot")
			}
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	log := s.logger.WithField("remote", r.RemoteAddr)
	log.Debug("dashboard websocket connected")

	sub := s.source.Snapshots().Subscribe()
	defer s.source.Snapshots().Unsubscribe(sub)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Debug("websocket read error")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case p, ok := <-sub:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(p); err != nil {
				log.WithError(err).Debug("websocket write error")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
