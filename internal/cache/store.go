package cache

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// BlobStore 是缓存使用的最小存储抽象。所有路径均为 "/" 分隔的相对路径，
// 目录需显式 Mkdir 后才能在其中 Write/Append。
type BlobStore interface {
	// Exists 判断路径（文件或目录）是否存在。
	Exists(p string) bool
	// Read 返回文件内容；不存在时返回 ErrNotFound。
	Read(p string) ([]byte, error)
	// Write 整体替换文件内容。实现需保证读者不会看到写了一半的文件。
	Write(p string, data []byte) error
	// Append 在文件末尾追加，文件不存在时创建。
	Append(p string, data []byte) error
	// Mkdir 创建单级目录，目录已存在时视为成功。
	Mkdir(p string) error
	Close() error
}

// Backend 标识 BlobStore 的实现。
type Backend string

const (
	BackendFS      Backend = "fs"
	BackendLevelDB Backend = "leveldb"
	BackendSQLite  Backend = "sqlite"
)

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")

// errParentMissing 表示写入目标的父目录尚未创建。
var errParentMissing = errors.New("parent directory does not exist")

// OpenStore 按 backend 打开存储：fs 以 location 为根目录，leveldb/sqlite 以 location 为数据库路径。
func OpenStore(backend Backend, location string) (BlobStore, error) {
	switch backend {
	case BackendFS, "":
		return NewFileStore(location)
	case BackendLevelDB:
		return OpenLevelDBStore(location)
	case BackendSQLite:
		return OpenSQLiteStore(location)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// cleanPath 将调用方路径规整为不含 ".." 的相对路径。
func cleanPath(p string) (string, error) {
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" {
		return "", errors.New("empty blob path")
	}
	return cleaned, nil
}

// parentDir 返回父目录；位于根目录时返回空字符串。
func parentDir(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
