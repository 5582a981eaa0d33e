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

// Package websocket is an illustrative edhoc.Transport over
// github.com/gorilla/websocket: one binary frame per EDHOC/OSCORE message,
// no framing envelope of its own since EDHOC messages are already a
// self-delimiting CBOR sequence on the wire. Neither edhoc nor oscore
// imports this package - both depend only on the abstract Transport
// interface, so any tx/rx collaborator, this one included, is swappable
// without touching the core packages.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// defaultDialTimeout bounds the initial HTTP upgrade handshake.
const defaultDialTimeout = 10 * time.Second

// Transport is a single WebSocket connection used as an edhoc.Transport.
// One Transport backs exactly one handshake/session; the underlying
// connection is not safe for concurrent Tx/Rx from multiple goroutines,
// matching the single-threaded cooperative session model the state
// machines assume.
type Transport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial opens a WebSocket connection to url and wraps it as a Transport.
func Dial(ctx context.Context, url string) (*Transport, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: defaultDialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket: dial %s failed (HTTP %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket: dial %s failed: %w", url, err)
	}
	return &Transport{conn: conn}, nil
}

// NewTransport wraps an already-established connection, as used on the
// server side after upgrading an incoming *http.Request.
func NewTransport(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn}
}

// Tx sends data as a single binary frame.
func (t *Transport) Tx(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("websocket: set write deadline: %w", err)
		}
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("websocket: write: %w", err)
	}
	return nil
}

// Rx blocks for the next binary frame. A non-binary frame (text, or a
// close handshake) is treated as a transport error rather than silently
// decoded, since every EDHOC/OSCORE message on this transport is binary.
func (t *Transport) Rx(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("websocket: set read deadline: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = t.conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	mt, data, err := t.conn.ReadMessage()
	close(done)
	if err != nil {
		return nil, fmt.Errorf("websocket: read: %w", err)
	}
	if mt != websocket.BinaryMessage {
		return nil, fmt.Errorf("websocket: unexpected frame type %d, want binary", mt)
	}
	return data, nil
}

// Close closes the underlying connection, sending a normal-closure frame
// first on a best-effort basis.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}
