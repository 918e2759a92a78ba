package localSigner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func Test_KeyFile(t *testing.T) {
	l := zap.NewNop()

	t.Run("Should round trip through a key file on disk", func(t *testing.T) {
		s, err := NewLocalSigner(l)
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "keys", "wallet.json")
		require.NoError(t, s.WriteKeyFile(path, "hunter2"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		loaded, err := NewLocalSignerFromKeyFile(path, "hunter2", l)
		require.NoError(t, err)
		assert.Equal(t, s.PublicKey(), loaded.PublicKey())
		assert.Equal(t, s.SeedBase58(), loaded.SeedBase58())
	})

	t.Run("Should reject the wrong password", func(t *testing.T) {
		s, err := NewLocalSigner(l)
		require.NoError(t, err)

		kf, err := s.EncryptKeyFile("correct", 1<<10)
		require.NoError(t, err)

		_, err = DecryptKeyFile(kf, "incorrect", l)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wrong password")
	})

	t.Run("Should reject a mismatched public key", func(t *testing.T) {
		s, err := NewLocalSigner(l)
		require.NoError(t, err)
		other, err := NewLocalSigner(l)
		require.NoError(t, err)

		kf, err := s.EncryptKeyFile("pw", 1<<10)
		require.NoError(t, err)
		kf.PublicKey = other.PublicKey().String()

		_, err = DecryptKeyFile(kf, "pw", l)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match")
	})

	t.Run("Should refuse empty passwords and unknown versions", func(t *testing.T) {
		s, err := NewLocalSigner(l)
		require.NoError(t, err)

		_, err = s.EncryptKeyFile("", 1<<10)
		assert.Error(t, err)

		kf, err := s.EncryptKeyFile("pw", 1<<10)
		require.NoError(t, err)
		kf.Version = 99
		_, err = DecryptKeyFile(kf, "pw", l)
		assert.Error(t, err)
	})
}
