package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type LocalStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return NewLocalStore(config.Dir), nil
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Type() string {
	return "local"
}

// Path resolves key to a file on disk.
func (s *LocalStore) Path(key string) (string, error) {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "\\") || key == ".." {
		return "", fmt.Errorf("invalid file key")
	}
	return filepath.Join(s.dir, key), nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}
