package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasetl/pkg/errors"
)

func newFileStore(t *testing.T) *Store {
	t.Helper()

	s, err := newStore(filepath.Join(t.TempDir(), "credentials"), false)
	require.NoError(t, err)
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := newFileStore(t)

	err := s.Set("snowflake_password", "password", "s3cret", map[string]string{
		"account": "xy12345",
	})
	require.NoError(t, err)

	cred, err := s.Get("snowflake_password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred.Value)
	assert.False(t, cred.Encrypted, "Get must return plaintext")
	assert.Equal(t, "xy12345", cred.Metadata["account"])
}

func TestValueIsEncryptedAtRest(t *testing.T) {
	s := newFileStore(t)
	require.NoError(t, s.Set("snowflake_password", "password", "s3cret", nil))

	raw, err := os.ReadFile(filepath.Join(s.dir, "snowflake_password.cred"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")
	assert.Contains(t, string(raw), `"encrypted": true`)
}

func TestGetMissingCredential(t *testing.T) {
	s := newFileStore(t)

	_, err := s.Get("nope")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCredentialNotFound, errors.GetErrorCode(err))
}

func TestDeleteAndList(t *testing.T) {
	s := newFileStore(t)

	require.NoError(t, s.Set("a", "password", "1", nil))
	require.NoError(t, s.Set("b", "token", "2", nil))

	names, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)

	require.NoError(t, s.Delete("a"))
	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}

func TestMasterKeyIsStable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "credentials")

	s1, err := newStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, s1.Set("pw", "password", "value", nil))

	// A second store over the same directory must reuse the key and still
	// decrypt.
	s2, err := newStore(dir, false)
	require.NoError(t, err)
	cred, err := s2.Get("pw")
	require.NoError(t, err)
	assert.Equal(t, "value", cred.Value)
}

func TestPathLikeNamesAreFlattened(t *testing.T) {
	s := newFileStore(t)

	require.NoError(t, s.Set("../escape", "password", "v", nil))
	_, err := os.Stat(filepath.Join(s.dir, "escape.cred"))
	assert.NoError(t, err, "credential must land inside the store directory")
}
