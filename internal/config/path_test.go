package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("TALLY_TEST_DIR", "/data/tally")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "absolute unchanged", in: "/var/lib/tally.db", want: "/var/lib/tally.db"},
		{name: "tilde prefix", in: "~/tally.db", want: filepath.Join(home, "tally.db")},
		{name: "bare tilde", in: "~", want: home},
		{name: "env var", in: "$TALLY_TEST_DIR/tally.db", want: "/data/tally/tally.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
