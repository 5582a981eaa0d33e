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

// Package resumestore defines the optional session-resume hook: letting
// a completed OSCORE security context be saved behind an opaque ticket
// and later restored, without making persistence part of
// the protocol's hard core. The hook is deliberately thin - it does not
// specify how or where state is kept, only the Save/Load/Revoke contract
// a caller can build a full handshake-skip flow on top of.
package resumestore

import (
	"context"
	"time"

	"github.com/sage-x-project/lake/oscore"
)

// ResumeStore saves and restores an oscore.SecurityContext behind an
// opaque, caller-unforgeable ticket. Implementations decide their own
// backing storage and ticket format; jwtresume is the reference one.
type ResumeStore interface {
	// Save persists ctx under id and returns an opaque ticket a peer can
	// later present to Load the same context back.
	Save(ctx context.Context, id string, sc *oscore.SecurityContext, expiresAt time.Time) (ticket []byte, err error)
	// Load validates ticket and returns the security context it names, or
	// an error if the ticket is malformed, expired, or revoked.
	Load(ctx context.Context, ticket []byte) (*oscore.SecurityContext, error)
	// Revoke makes id's ticket(s) permanently unusable, independent of
	// their stated expiry.
	Revoke(ctx context.Context, id string) error
}
