package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const schema = "CREATE TABLE IF NOT EXISTS kv (\n" +
	"    `tbl`   TEXT NOT NULL,\n" +
	"    `key`   TEXT NOT NULL,\n" +
	"    `value` BLOB NOT NULL,\n" +
	"    PRIMARY KEY (`tbl`, `key`)\n" +
	");"

// SQLiteStorage persists every table in a single SQLite file. Mutations are
// serialized by the backend, reads run concurrently. GetAll orders by key.
type SQLiteStorage struct {
	db *sql.DB
	mx sync.Mutex
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"busy_timeout(5000)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func lookupValue(q queryer, table, key string) (Value, bool, error) {
	var data []byte
	err := q.QueryRow("SELECT `value` FROM kv WHERE `tbl` = ? AND `key` = ?", table, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Value{}, false, nil
		}
		return Value{}, false, err
	}
	if data == nil {
		data = []byte{}
	}
	return Value{Data: data}, true, nil
}

func (s *SQLiteStorage) Get(table, key string) (Value, bool, error) {
	return lookupValue(s.db, table, key)
}

func (s *SQLiteStorage) Set(table, key string, value Value) (Value, bool, error) {
	data := value.Data
	if data == nil {
		data = []byte{}
	}

	var prev Value
	var existed bool
	err := s.inTx(func(tx *sql.Tx) error {
		var err error
		prev, existed, err = lookupValue(tx, table, key)
		if err != nil {
			return err
		}
		_, err = tx.Exec("REPLACE INTO kv (`tbl`, `key`, `value`) VALUES (?, ?, ?)", table, key, data)
		return err
	})
	if err != nil {
		return Value{}, false, fmt.Errorf("failed to set %s/%s: %w", table, key, err)
	}
	return prev, existed, nil
}

func (s *SQLiteStorage) Contains(table, key string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM kv WHERE `tbl` = ? AND `key` = ?", table, key).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStorage) Delete(table, key string) (Value, bool, error) {
	var prev Value
	var existed bool
	err := s.inTx(func(tx *sql.Tx) error {
		var err error
		prev, existed, err = lookupValue(tx, table, key)
		if err != nil || !existed {
			return err
		}
		_, err = tx.Exec("DELETE FROM kv WHERE `tbl` = ? AND `key` = ?", table, key)
		return err
	})
	if err != nil {
		return Value{}, false, fmt.Errorf("failed to delete %s/%s: %w", table, key, err)
	}
	return prev, existed, nil
}

func (s *SQLiteStorage) GetAll(table string) ([]KvPair, error) {
	rows, err := s.db.Query("SELECT `key`, `value` FROM kv WHERE `tbl` = ? ORDER BY `key`", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := []KvPair{}
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, err
		}
		if data == nil {
			data = []byte{}
		}
		pairs = append(pairs, KvPair{Key: key, Value: Value{Data: data}})
	}
	return pairs, rows.Err()
}

func (s *SQLiteStorage) inTx(fn func(tx *sql.Tx) error) error {
	s.mx.Lock()
	defer s.mx.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
