package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

const (
	levelFilePrefix = "f:"
	levelDirPrefix  = "d:"
)

// levelStore 以 LevelDB 键值对模拟目录树：f:<path> 存文件，d:<path> 为目录标记。
type levelStore struct {
	db *leveldb.DB
	// appendMu 串行化 Append 的读改写。
	appendMu sync.Mutex
}

// OpenLevelDBStore 打开（或创建）位于 dir 的 LevelDB。
func OpenLevelDBStore(dir string) (BlobStore, error) {
	if dir == "" {
		return nil, errors.New("leveldb path required")
	}
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &levelStore{db: db}, nil
}

// NewMemoryLevelDBStore 使用内存存储，主要用于测试。
func NewMemoryLevelDBStore() (BlobStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &levelStore{db: db}, nil
}

func (s *levelStore) has(key string) bool {
	ok, err := s.db.Has([]byte(key), nil)
	return err == nil && ok
}

func (s *levelStore) isDir(p string) bool {
	return p == "" || s.has(levelDirPrefix+p)
}

func (s *levelStore) Exists(p string) bool {
	rel, err := cleanPath(p)
	if err != nil {
		return false
	}
	return s.has(levelFilePrefix+rel) || s.has(levelDirPrefix+rel)
}

func (s *levelStore) Read(p string) ([]byte, error) {
	rel, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	data, err := s.db.Get([]byte(levelFilePrefix+rel), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *levelStore) Write(p string, data []byte) error {
	rel, err := cleanPath(p)
	if err != nil {
		return err
	}
	if !s.isDir(parentDir(rel)) {
		return fmt.Errorf("write %s: %w", rel, errParentMissing)
	}
	return s.db.Put([]byte(levelFilePrefix+rel), data, nil)
}

func (s *levelStore) Append(p string, data []byte) error {
	rel, err := cleanPath(p)
	if err != nil {
		return err
	}
	if !s.isDir(parentDir(rel)) {
		return fmt.Errorf("append %s: %w", rel, errParentMissing)
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	key := []byte(levelFilePrefix + rel)
	existing, err := s.db.Get(key, nil)
	if err != nil && !errors.Is(err, leveldb.ErrNotFound) {
		return err
	}
	combined := make([]byte, 0, len(existing)+len(data))
	combined = append(combined, existing...)
	combined = append(combined, data...)
	return s.db.Put(key, combined, nil)
}

func (s *levelStore) Mkdir(p string) error {
	rel, err := cleanPath(p)
	if err != nil {
		return err
	}
	if s.has(levelFilePrefix + rel) {
		return fmt.Errorf("mkdir %s: a file with that name exists", rel)
	}
	if !s.isDir(parentDir(rel)) {
		return fmt.Errorf("mkdir %s: %w", rel, errParentMissing)
	}
	return s.db.Put([]byte(levelDirPrefix+rel), nil, nil)
}

func (s *levelStore) Close() error { return s.db.Close() }
