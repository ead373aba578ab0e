package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mag7qa/internal/config"
)

func TestLocalStoreOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mag7_index.json"), []byte(`{"chunks":[]}`), 0o644))

	store, err := New(config.FileStoreConfig{Type: "Local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	rc, err := store.Open(context.Background(), "mag7_index.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, `{"chunks":[]}`, string(data))
}

func TestLocalStoreRejectsNestedKeys(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	for _, key := range []string{"", "../secret", "a/b.json", `a\b.json`, ".."} {
		_, err := store.Open(context.Background(), key)
		require.Error(t, err, key)
	}
}

func TestNewStoreErrors(t *testing.T) {
	_, err := New(config.FileStoreConfig{})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "local"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{}})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "s3", Data: map[string]interface{}{"region": "us-east-1"}})
	require.Error(t, err)
}

func TestS3Helpers(t *testing.T) {
	require.Equal(t, "indexes/mag7.json", objectKey("indexes", "mag7.json"))
	require.Equal(t, "mag7.json", objectKey("", "/mag7.json"))
	require.Equal(t, "", buildEndpoint("  ", true))
	require.Equal(t, "https://minio:9000", buildEndpoint("minio:9000/", true))
	require.Equal(t, "http://minio:9000", buildEndpoint("minio:9000", false))
	require.Equal(t, "http://minio:9000", buildEndpoint("http://minio:9000", true))
}
