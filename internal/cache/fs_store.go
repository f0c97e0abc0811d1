package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// NewFileStore 以 basePath 为根目录构建磁盘存储；basePath 为空时使用当前工作目录。
func NewFileStore(basePath string) (BlobStore, error) {
	if basePath == "" {
		basePath = "."
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}
	return &fileStore{basePath: abs}, nil
}

// fileStore 不做条目级加锁，并发写同一条目时以最后一次 rename 为准。
type fileStore struct {
	basePath string
}

func (s *fileStore) Exists(p string) bool {
	full, err := s.path(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (s *fileStore) Read(p string) ([]byte, error) {
	full, err := s.path(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *fileStore) Write(p string, data []byte) error {
	full, err := s.path(p)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(full), ".blob-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, full); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (s *fileStore) Append(p string, data []byte) error {
	full, err := s.path(p)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (s *fileStore) Mkdir(p string) error {
	full, err := s.path(p)
	if err != nil {
		return err
	}
	if err := os.Mkdir(full, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			if info, statErr := os.Stat(full); statErr == nil && info.IsDir() {
				return nil
			}
		}
		return err
	}
	return nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) path(p string) (string, error) {
	rel, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(rel)), nil
}
