package litetable

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetLitetableDir(t *testing.T) {
	tests := map[string]struct {
		env  map[string]string
		want string
	}{
		"override": {
			env:  map[string]string{HomeEnv: "/srv/litetable/"},
			want: "/srv/litetable",
		},
		"home directory": {
			env:  map[string]string{HomeEnv: "", "HOME": "/home/emp"},
			want: filepath.Join("/home/emp", ".litetable"),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			dir, err := GetLitetableDir()
			require.NoError(t, err)
			require.Equal(t, tc.want, dir)
		})
	}

	t.Run("no home", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		t.Setenv("HOME", "")
		_, err := GetLitetableDir()
		require.ErrorIs(t, err, ErrIO)
	})
}
