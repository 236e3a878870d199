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

// Package validate implements the pure, I/O-free checks that every
// mutating or querying Engine operation runs before touching either
// substrate. A rejected call must leave both the blob store and the
// metadata index untouched, so these functions never have side
// effects.
package validate

import (
	"regexp"

	"github.com/nvrio/stashd/internal/errs"
)

var (
	nameRegexp = regexp.MustCompile(`^[0-9a-zA-Z_.-]+$`)
	hexRegexp  = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// Name checks that s is a valid project, version, or file name: a
// non-empty string matching [0-9a-zA-Z_.-]+, excluding the literal
// path components "." and "..".
func Name(s string) error {
	if s == "." || s == ".." {
		return errs.New(errs.InvalidName, "invalid name")
	}
	if !nameRegexp.MatchString(s) {
		return errs.New(errs.InvalidName, "invalid name")
	}
	return nil
}

// SHA256 checks that s is exactly 64 lowercase hex characters.
func SHA256(s string) error {
	if !hexRegexp.MatchString(s) {
		return errs.New(errs.InvalidSHA256, "invalid SHA-256 hash")
	}
	return nil
}

// StarParam validates a star flag arriving from an untyped boundary
// (HTTP form data). Only the literal strings "true" and "false" are
// accepted — no truthy coercion of "1"/"0"/"yes"/empty string. This is
// the Go expression of the original's validate_star, which rejects
// anything that is not strictly the boolean true or false: in a
// statically-typed core a bool parameter already can't be anything
// else, so the check only has teeth at a string boundary like this
// one.
func StarParam(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, errs.New(errs.InvalidStar, "invalid star state")
	}
}
