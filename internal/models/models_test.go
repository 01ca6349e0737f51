package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIsActive(t *testing.T) {
	now := int64(1_700_000_000_000)

	tests := []struct {
		name    string
		enabled bool
		expires int64
		want    bool
	}{
		{"enabled and valid", true, now + 1000, true},
		{"disabled", false, now + 1000, false},
		{"expired", true, now - 1, false},
		{"expires exactly now", true, now, false},
		{"disabled and expired", false, now - 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Client{Enabled: tt.enabled, ExpiresAt: tt.expires}
			require.Equal(t, tt.want, c.IsActive(now))
		})
	}
}
