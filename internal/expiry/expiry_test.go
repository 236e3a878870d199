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

package expiry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seconds int
		want    string
	}{
		{-5, "expired"},
		{0, "expired"},
		{1, "expires in 1 second"},
		{55, "expires in 55 seconds"},
		{60, "expires in 1 minute"},
		{65, "expires in 1 minute"},
		{115, "expires in 2 minutes"},
		{3300, "expires in 55 minutes"},
		{3600, "expires in 1 hour"},
		{86400, "expires in 1 day"},
		{72000, "expires in 20 hours"},
		{172800, "expires in 2 days"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Format(tt.seconds))
		})
	}
}
