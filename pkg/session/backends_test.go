package session_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/cephtool/pkg/remotefs"
	"github.com/marmos91/cephtool/pkg/remotefs/badger"
	"github.com/marmos91/cephtool/pkg/remotefs/sqlite"
	"github.com/marmos91/cephtool/pkg/session"
)

// TestPersistentBackends runs the core round trips against the on-disk
// kvfs backends.
func TestPersistentBackends(t *testing.T) {
	backends := map[string]func(t *testing.T) remotefs.Driver{
		"badger": func(t *testing.T) remotefs.Driver {
			d, err := badger.New(context.Background(), badger.StoreConfig{DBPath: t.TempDir()})
			require.NoError(t, err)
			t.Cleanup(func() { _ = d.Close() })
			return d
		},
		"sqlite": func(t *testing.T) remotefs.Driver {
			d, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "fs.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = d.Close() })
			return d
		},
	}

	for name, newDriver := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := loggedIn(t, newDriver(t))
			dir := t.TempDir()

			t.Run("ChunkedCopy", func(t *testing.T) {
				src, data := randomFile(t, dir, 2018<<10)
				require.NoError(t, s.CopyToRemote(ctx, "/bin/blob", src))

				dst := filepath.Join(dir, "blob.out")
				require.NoError(t, s.CopyFromRemote(ctx, "/bin/blob", dst))
				requireFileContent(t, dst, data)
			})

			t.Run("ListAndRemoveTree", func(t *testing.T) {
				for i := range 40 {
					require.NoError(t, s.WriteString(ctx, fmt.Sprintf("/tree/sub%d/f%02d", i%3, i), "x"))
				}
				names, err := s.ListDirBuffered(ctx, "/tree")
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"sub0", "sub1", "sub2"}, names)

				require.NoError(t, s.RemoveTree(ctx, "/tree"))
				assert.Equal(t, session.KindNotFound, s.Stat(ctx, "/tree"))
			})

			t.Run("RenameOverwrites", func(t *testing.T) {
				require.NoError(t, s.WriteString(ctx, "/r/src", "new"))
				require.NoError(t, s.WriteString(ctx, "/r/dst", "old old"))
				require.NoError(t, s.Rename(ctx, "/r/src", "/r/dst"))

				got, err := s.ReadString(ctx, "/r/dst")
				require.NoError(t, err)
				assert.Equal(t, "new", got)
			})
		})
	}
}
