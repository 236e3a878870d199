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

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvrio/stashd/internal/errs"
)

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid simple", input: "ProjectX", wantErr: false},
		{name: "valid with dots and dashes", input: "1.0.0-rc1_build", wantErr: false},
		{name: "rejects dot", input: ".", wantErr: true},
		{name: "rejects dotdot", input: "..", wantErr: true},
		{name: "rejects empty", input: "", wantErr: true},
		{name: "rejects slash", input: "1/2", wantErr: true},
		{name: "rejects question mark", input: "Project?", wantErr: true},
		{name: "rejects colon", input: "file:A", wantErr: true},
		{name: "rejects space", input: "has space", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Name(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errs.Is(err, errs.InvalidName))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSHA256(t *testing.T) {
	t.Parallel()

	valid := "e6f96beba7edddcbe06e2b526419ab151300fc271ee13f42eb11ee45f74dd150"

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid hash", input: valid, wantErr: false},
		{name: "too short", input: "abcd", wantErr: true},
		{name: "uppercase rejected", input: valid[:63] + "A", wantErr: true},
		{name: "non-hex character", input: valid[:63] + "g", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := SHA256(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errs.Is(err, errs.InvalidSHA256))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStarParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    bool
		wantErr bool
	}{
		{name: "true literal", input: "true", want: true},
		{name: "false literal", input: "false", want: false},
		{name: "rejects numeric truthy", input: "1", wantErr: true},
		{name: "rejects numeric falsy", input: "0", wantErr: true},
		{name: "rejects empty", input: "", wantErr: true},
		{name: "rejects yes", input: "yes", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := StarParam(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errs.Is(err, errs.InvalidStar))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
