/*
 * stashd: temporary artifact store
 * Copyright © 2026 nvrio
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package errs defines the engine's error kinds. Every failure the
// Engine or its substrates can produce maps to exactly one Kind so
// that callers (HTTP handlers, CLI commands) can switch on category
// without depending on a substrate's concrete error type.
package errs

import "errors"

type Kind int

const (
	Unknown Kind = iota
	InvalidName
	InvalidSHA256
	InvalidStar
	NotFound
	DuplicateFile
	Internal
)

func (k Kind) String() string {
	switch k {
	case InvalidName:
		return "invalid-name"
	case InvalidSHA256:
		return "invalid-sha256"
	case InvalidStar:
		return "invalid-star-state"
	case NotFound:
		return "not-found"
	case DuplicateFile:
		return "duplicate-file"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the single error type every core operation returns. Msg is
// a short, human-readable message safe to surface to a caller; it
// never carries a substrate-level message (a raw sqlite3 error, a raw
// os.PathError) verbatim.
type Error struct {
	Kind Kind
	Msg  string
	err  error // optional wrapped cause, for %w / logging only
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, err: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
