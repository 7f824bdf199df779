// Package store persists the client-side sync state in a local sqlite
// database: a small key/value table holding JSON blobs under fixed keys,
// mirroring the browser-local storage of the web client.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/arhen/satset.io/internal/client/sync"
	_ "modernc.org/sqlite"
)

const (
	syncQueueKey  = "syncQueue"
	syncedURLsKey = "syncedUrls"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string, out interface{}) (bool, error) {
	var value string

	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, json.Unmarshal([]byte(value), out)
}

func (s *Store) put(key string, in interface{}) error {
	value, err := json.Marshal(in)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value),
	)
	return err
}

func (s *Store) LoadQueue() ([]sync.Task, error) {
	var tasks []sync.Task

	found, err := s.get(syncQueueKey, &tasks)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return tasks, nil
}

func (s *Store) SaveQueue(tasks []sync.Task) error {
	if tasks == nil {
		tasks = []sync.Task{}
	}
	return s.put(syncQueueKey, tasks)
}

// LoadSynced returns the confirmed state keyed by the alias the client asked
// for. The requested alias is the dedup key even when the server substituted
// a different one.
func (s *Store) LoadSynced() (map[string]sync.SyncedURL, error) {
	synced := make(map[string]sync.SyncedURL)

	if _, err := s.get(syncedURLsKey, &synced); err != nil {
		return nil, err
	}

	return synced, nil
}

func (s *Store) SaveSynced(synced map[string]sync.SyncedURL) error {
	if synced == nil {
		synced = map[string]sync.SyncedURL{}
	}
	return s.put(syncedURLsKey, synced)
}
