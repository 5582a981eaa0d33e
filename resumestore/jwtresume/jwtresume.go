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

// Package jwtresume is the reference resumestore.ResumeStore: tickets are
// HMAC-signed JWTs carrying only a session id and expiry, never key
// material; the actual oscore.SecurityContext snapshot lives server-side
// in Postgres, keyed by that same session id. A leaked ticket without
// database access to the server that issued it is not, by itself,
// sufficient to resume a session.
package jwtresume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sage-x-project/lake/cipherprovider"
	"github.com/sage-x-project/lake/oscore"
)

// ticketClaims is the JWT payload. It names a session but carries none of
// its cryptographic material.
type ticketClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Store is the Postgres-backed ResumeStore implementation.
type Store struct {
	db      *pgxpool.Pool
	signKey []byte
	issuer  string
	signAlg jwt.SigningMethod
}

// New wraps an existing connection pool. signKey is the HMAC key used to
// sign and verify tickets; it is not the same key as any OSCORE secret.
func New(db *pgxpool.Pool, signKey []byte, issuer string) *Store {
	return &Store{db: db, signKey: signKey, issuer: issuer, signAlg: jwt.SigningMethodHS256}
}

// Save persists sc's Snapshot under id and returns a signed ticket naming
// it, valid until expiresAt.
func (s *Store) Save(ctx context.Context, id string, sc *oscore.SecurityContext, expiresAt time.Time) ([]byte, error) {
	snapshot, err := json.Marshal(sc.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal security context snapshot: %w", err)
	}

	query := `
		INSERT INTO resume_sessions (id, snapshot, expires_at, revoked)
		VALUES ($1, $2, $3, false)
		ON CONFLICT (id) DO UPDATE SET snapshot = $2, expires_at = $3, revoked = false
	`
	if _, err := s.db.Exec(ctx, query, id, snapshot, expiresAt); err != nil {
		return nil, fmt.Errorf("store resume snapshot: %w", err)
	}

	now := time.Now()
	claims := ticketClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		SessionID: id,
	}
	token := jwt.NewWithClaims(s.signAlg, claims)
	signed, err := token.SignedString(s.signKey)
	if err != nil {
		return nil, fmt.Errorf("sign resume ticket: %w", err)
	}
	return []byte(signed), nil
}

// Load verifies ticket and, if still valid and not revoked, restores the
// oscore.SecurityContext it names.
func (s *Store) Load(ctx context.Context, ticket []byte) (*oscore.SecurityContext, error) {
	var claims ticketClaims
	token, err := jwt.ParseWithClaims(string(ticket), &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != s.signAlg {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return s.signKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify resume ticket: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("resume ticket is not valid")
	}

	var snapshotJSON []byte
	var expiresAt time.Time
	var revoked bool
	query := `SELECT snapshot, expires_at, revoked FROM resume_sessions WHERE id = $1`
	err = s.db.QueryRow(ctx, query, claims.SessionID).Scan(&snapshotJSON, &expiresAt, &revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no resumable session for id %s", claims.SessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load resume snapshot: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("session %s was revoked", claims.SessionID)
	}
	if time.Now().After(expiresAt) {
		return nil, fmt.Errorf("session %s expired", claims.SessionID)
	}

	var snapshot oscore.Snapshot
	if err := json.Unmarshal(snapshotJSON, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal security context snapshot: %w", err)
	}
	return oscore.FromSnapshot(cipherprovider.New(), snapshot), nil
}

// Revoke marks id's session unresumable regardless of its ticket's
// stated expiry.
func (s *Store) Revoke(ctx context.Context, id string) error {
	result, err := s.db.Exec(ctx, `UPDATE resume_sessions SET revoked = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke resume session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no resumable session for id %s", id)
	}
	return nil
}
