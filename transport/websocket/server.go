// LAKE - Lightweight Authenticated Key Exchange core
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of LAKE.
//
// LAKE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// LAKE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with LAKE. If not, see <https://www.gnu.org/licenses/>.

package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// SessionHandler drives one complete EDHOC handshake (and, typically, the
// OSCORE exchange that follows it) over t. It owns t for the lifetime of
// the connection and is responsible for closing it when done.
type SessionHandler func(ctx context.Context, t *Transport)

// Server upgrades incoming HTTP connections to WebSocket and hands each
// one, wrapped as a Transport, to a SessionHandler. Unlike a request/
// response RPC server, one connection here is one session end to end: the
// handler is expected to block for the duration of the handshake.
type Server struct {
	handler  SessionHandler
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewServer builds a Server that dispatches every upgraded connection to
// handler. CheckOrigin is left permissive, matching a demo/bench tool
// rather than a production-facing listener.
func NewServer(handler SessionHandler) *Server {
	return &Server{
		handler: handler,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the http.Handler to mount at the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, fmt.Sprintf("websocket: upgrade failed: %v", err), http.StatusBadRequest)
			return
		}
		s.track(conn)
		defer s.untrack(conn)
		defer func() { _ = conn.Close() }()

		s.handler(r.Context(), NewTransport(conn))
	})
}

func (s *Server) track(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// ActiveSessions reports the number of connections currently being served.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close closes every active connection, sending a normal-closure frame to
// each on a best-effort basis.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
	s.conns = make(map[*websocket.Conn]struct{})
	return nil
}
