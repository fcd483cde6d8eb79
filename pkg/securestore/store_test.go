package securestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
)

func TestRoundTripAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	s, err := New(dir, logr.Discard())
	require.NoError(t, err)
	s.SetItem("sb-auth-token", `{"access_token":"abc"}`)

	raw, err := os.ReadFile(filepath.Join(dir, itemsFile))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "access_token"), "value must not be stored in clear")

	reopened, err := New(dir, logr.Discard())
	require.NoError(t, err)
	v, ok := reopened.GetItem("sb-auth-token")
	require.True(t, ok)
	assert.Equal(t, `{"access_token":"abc"}`, v)
}

func TestRemoveItem(t *testing.T) {
	s, err := New(t.TempDir(), logr.Discard())
	require.NoError(t, err)

	s.SetItem("k", "v")
	s.RemoveItem("k")
	_, ok := s.GetItem("k")
	assert.False(t, ok)

	s.RemoveItem("missing")
}

func TestTamperedValueReadsAsMissing(t *testing.T) {
	s, err := New(t.TempDir(), logr.Discard())
	require.NoError(t, err)

	s.SetItem("k", "v")
	s.Items["k"] = "!!not-base64"
	_, ok := s.GetItem("k")
	assert.False(t, ok)

	// A value sealed under one key cannot be replayed under another.
	s.SetItem("a", "secret")
	s.Items["b"] = s.Items["a"]
	_, ok = s.GetItem("b")
	assert.False(t, ok)
}

func TestCorruptFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, logr.Discard())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, itemsFile), []byte("{garbage"), 0600))

	s, err := New(dir, logr.Discard())
	require.NoError(t, err)
	_, ok := s.GetItem("anything")
	assert.False(t, ok)
}

func TestBadKeyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFile), []byte("abcd"), 0600))

	_, err := New(dir, logr.Discard())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.StorageAccess))

	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFile), []byte("not-hex"), 0600))
	_, err = New(dir, logr.Discard())
	assert.True(t, apperr.Is(err, apperr.StorageAccess))
}

func TestNullItemsFileReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, logr.Discard())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, itemsFile), []byte("null"), 0600))

	s, err := New(dir, logr.Discard())
	require.NoError(t, err)
	_, ok := s.GetItem("k")
	assert.False(t, ok)

	require.NotPanics(t, func() { s.SetItem("k", "v") })
	v, ok := s.GetItem("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestKeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, logr.Discard())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, keyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
