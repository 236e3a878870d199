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

// Package expiry formats a second-count into the human string shown
// next to an unstarred version. The rounding thresholds below are a
// contract, not a style choice: callers (and their tests) pin the
// exact output.
package expiry

import "fmt"

// Format returns "expired" for seconds <= 0, otherwise "expires in
// <n> <unit>[s]" where the unit is chosen by a round-half-up-then-
// reduce cascade: seconds -> minutes -> hours -> days.
func Format(seconds int) string {
	if seconds <= 0 {
		return "expired"
	}
	return "expires in " + formatApproximate(seconds)
}

func formatApproximate(n int) string {
	if n < 60 {
		return unit(n, "second")
	}
	n = (n + 30) / 60
	if n < 60 {
		return unit(n, "minute")
	}
	n = (n + 30) / 60
	if n < 24 {
		return unit(n, "hour")
	}
	n = (n + 12) / 24
	return unit(n, "day")
}

func unit(n int, name string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, name)
	}
	return fmt.Sprintf("%d %ss", n, name)
}
