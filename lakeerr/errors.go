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

// Package lakeerr defines the caller-visible error kinds shared by the
// edhoc, oscore, cborcodec and credential packages. Every kind carries a
// stable integer discriminant across releases; callers should branch on
// Kind rather than on error strings.
package lakeerr

import (
	"errors"
	"fmt"
)

// Kind is the stable discriminant for a caller-visible error.
type Kind int

const (
	_ Kind = iota

	// Crypto
	HashFailed
	EcdhFailed
	AeadAuth
	SignFailed
	VerifyFailed

	// Wire
	CborMalformed
	CborUnexpectedType
	CborTruncated
	CborTrailing
	BufferTooSmall

	// Protocol
	UnsupportedMethod
	UnsupportedSuite
	SuiteMismatch
	UnknownCredential
	AuthFailed
	ErrorMessageReceived

	// Replay
	ReplayDuplicate
	ReplayWindowStale
	NotificationOutOfOrder

	// Lifecycle
	Cancelled
	TransportError

	// Credential resolution (non-goal surfaces still need a shape)
	CredNotFound
	CredAmbiguous
	CredFetchUnsupported
	CertInvalid
)

var kindNames = map[Kind]string{
	HashFailed:             "HashFailed",
	EcdhFailed:             "EcdhFailed",
	AeadAuth:               "AeadAuth",
	SignFailed:             "SignFailed",
	VerifyFailed:           "VerifyFailed",
	CborMalformed:          "CborMalformed",
	CborUnexpectedType:     "CborUnexpectedType",
	CborTruncated:          "CborTruncated",
	CborTrailing:           "CborTrailing",
	BufferTooSmall:         "BufferTooSmall",
	UnsupportedMethod:      "UnsupportedMethod",
	UnsupportedSuite:       "UnsupportedSuite",
	SuiteMismatch:          "SuiteMismatch",
	UnknownCredential:      "UnknownCredential",
	AuthFailed:             "AuthFailed",
	ErrorMessageReceived:   "ErrorMessageReceived",
	ReplayDuplicate:        "ReplayDuplicate",
	ReplayWindowStale:      "ReplayWindowStale",
	NotificationOutOfOrder: "NotificationOutOfOrder",
	Cancelled:              "Cancelled",
	TransportError:         "TransportError",
	CredNotFound:           "CredNotFound",
	CredAmbiguous:          "CredAmbiguous",
	CredFetchUnsupported:   "CredFetchUnsupported",
	CertInvalid:            "CertInvalid",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the single concrete error type for every Kind above. It carries
// optional protocol-specific payloads (SuitesR for SuiteMismatch, ErrCode/
// ErrInfo for ErrorMessageReceived) that a plain sentinel value can't.
type Error struct {
	Kind    Kind
	Detail  string
	Wrapped error

	// SuitesR is populated only for SuiteMismatch: the responder's
	// supported suite list.
	SuitesR []int

	// ErrCode/ErrInfo are populated only for ErrorMessageReceived, mirroring
	// the EDHOC error() message's ERR_CODE/ERR_INFO shape.
	ErrCode int
	ErrInfo any
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is(err, lakeerr.New(lakeerr.AeadAuth, "")) match any
// *Error of the same Kind by comparing discriminants rather than pointer
// identity.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs a bare Error of the given kind.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap attaches kind/detail to an underlying error for Unwrap chains.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Wrapped: err}
}

// SuiteMismatchErr builds the E3 suite-renegotiation error.
func SuiteMismatchErr(suitesR []int) *Error {
	return &Error{Kind: SuiteMismatch, Detail: "unsupported cipher suite", SuitesR: suitesR}
}

// ErrorMessage builds an error surfaced from a received EDHOC error() item.
func ErrorMessage(code int, info any) *Error {
	return &Error{Kind: ErrorMessageReceived, ErrCode: code, ErrInfo: info}
}

// Of reports whether err carries the given Kind anywhere in its chain.
func Of(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Wrapped
	}
	return false
}

// KindOf extracts err's Kind for metrics/log labelling, or the zero Kind
// if err isn't (or doesn't wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
