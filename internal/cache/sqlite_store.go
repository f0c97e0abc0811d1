package cache

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const createBlobTable = `
CREATE TABLE IF NOT EXISTS blobs (
	path TEXT PRIMARY KEY,
	data BLOB,
	is_dir INTEGER NOT NULL DEFAULT 0
);
`

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLiteStore 打开位于 dbPath 的 SQLite 数据库并确保表结构存在。
func OpenSQLiteStore(dbPath string) (BlobStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path required")
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open blob db: %w", err)
	}
	if _, err := db.Exec(createBlobTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate blob db: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

// lookup 返回 (存在, 是否目录)。
func (s *sqliteStore) lookup(p string) (bool, bool) {
	if p == "" {
		return true, true
	}
	var isDir int
	err := s.db.QueryRow(`SELECT is_dir FROM blobs WHERE path = ?`, p).Scan(&isDir)
	if err != nil {
		return false, false
	}
	return true, isDir == 1
}

func (s *sqliteStore) requireParent(op, rel string) error {
	if _, dir := s.lookup(parentDir(rel)); !dir {
		return fmt.Errorf("%s %s: %w", op, rel, errParentMissing)
	}
	return nil
}

func (s *sqliteStore) Exists(p string) bool {
	rel, err := cleanPath(p)
	if err != nil {
		return false
	}
	found, _ := s.lookup(rel)
	return found
}

func (s *sqliteStore) Read(p string) ([]byte, error) {
	rel, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.db.QueryRow(`SELECT data FROM blobs WHERE path = ? AND is_dir = 0`, rel).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *sqliteStore) Write(p string, data []byte) error {
	rel, err := cleanPath(p)
	if err != nil {
		return err
	}
	if err := s.requireParent("write", rel); err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO blobs (path, data, is_dir) VALUES (?, ?, 0)
		 ON CONFLICT(path) DO UPDATE SET data = excluded.data WHERE is_dir = 0`,
		rel, data,
	)
	return err
}

func (s *sqliteStore) Append(p string, data []byte) error {
	rel, err := cleanPath(p)
	if err != nil {
		return err
	}
	if err := s.requireParent("append", rel); err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO blobs (path, data, is_dir) VALUES (?, ?, 0)
		 ON CONFLICT(path) DO UPDATE SET data = blobs.data || excluded.data WHERE is_dir = 0`,
		rel, data,
	)
	return err
}

func (s *sqliteStore) Mkdir(p string) error {
	rel, err := cleanPath(p)
	if err != nil {
		return err
	}
	if found, dir := s.lookup(rel); found {
		if dir {
			return nil
		}
		return fmt.Errorf("mkdir %s: a file with that name exists", rel)
	}
	if err := s.requireParent("mkdir", rel); err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR IGNORE INTO blobs (path, data, is_dir) VALUES (?, NULL, 1)`, rel)
	return err
}

func (s *sqliteStore) Close() error { return s.db.Close() }
