package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid - user id",
			id:   "userA",
		},
		{
			name: "valid - numeric",
			id:   "1",
		},
		{
			name: "valid - dash and underscore",
			id:   "doc-1_draft",
		},
		{
			name: "valid - max length",
			id:   strings.Repeat("a", MaxIDLen),
		},
		{
			name:    "invalid - empty",
			id:      "",
			wantErr: true,
			errMsg:  "cannot be empty",
		},
		{
			name:    "invalid - too long",
			id:      strings.Repeat("a", MaxIDLen+1),
			wantErr: true,
			errMsg:  "must not exceed",
		},
		{
			name:    "invalid - space",
			id:      "user a",
			wantErr: true,
			errMsg:  "can only contain",
		},
		{
			name:    "invalid - slash",
			id:      "../etc",
			wantErr: true,
			errMsg:  "can only contain",
		},
		{
			name:    "invalid - unicode",
			id:      "пользователь",
			wantErr: true,
			errMsg:  "can only contain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID("user id", tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Contains(t, err.Error(), "user id")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRoom(t *testing.T) {
	tests := []struct {
		name    string
		room    string
		wantErr bool
	}{
		{name: "valid", room: "project-1-doc-doc-1"},
		{name: "valid - uuid ids", room: "project-5f0c-doc-a1b2_c3"},
		{name: "empty", room: "", wantErr: true},
		{name: "missing doc part", room: "project-1", wantErr: true},
		{name: "wrong prefix", room: "board-1-doc-2", wantErr: true},
		{name: "path traversal", room: "project-1-doc-../x", wantErr: true},
		{name: "too long", room: "project-1-doc-" + strings.Repeat("x", MaxRoomLen), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoom(tt.room)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
