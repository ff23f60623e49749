package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

const createTableCQL = `CREATE TABLE IF NOT EXISTS local_storage (
	key text PRIMARY KEY,
	value text
)`

// ScyllaStorage range les tranches dans une table clé/valeur. Le verrou est
// local au processus : un seul serveur doit écrire dans le keyspace.
type ScyllaStorage struct {
	session *gocql.Session
	locks   *keyLocks
}

func NewScyllaStorage(session *gocql.Session) (*ScyllaStorage, error) {
	if err := session.Query(createTableCQL).Exec(); err != nil {
		return nil, fmt.Errorf("création table local_storage: %w", err)
	}
	return &ScyllaStorage{session: session, locks: newKeyLocks()}, nil
}

func (s *ScyllaStorage) Load(ctx context.Context, key string, dest any) (bool, error) {
	var value string
	err := s.session.Query(`SELECT value FROM local_storage WHERE key = ?`, key).
		WithContext(ctx).Scan(&value)
	if errors.Is(err, gocql.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lecture scylla %s: %w", key, err)
	}
	return true, json.Unmarshal([]byte(value), dest)
}

func (s *ScyllaStorage) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if ttl > 0 {
		return s.session.Query(`INSERT INTO local_storage (key, value) VALUES (?, ?) USING TTL ?`,
			key, string(data), int(ttl.Seconds())).WithContext(ctx).Exec()
	}
	return s.session.Query(`INSERT INTO local_storage (key, value) VALUES (?, ?)`,
		key, string(data)).WithContext(ctx).Exec()
}

func (s *ScyllaStorage) Remove(ctx context.Context, key string) error {
	return s.session.Query(`DELETE FROM local_storage WHERE key = ?`, key).WithContext(ctx).Exec()
}

func (s *ScyllaStorage) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock := s.locks.lock(key)
	defer unlock()
	return fn(ctx)
}

func (s *ScyllaStorage) Close() error {
	s.session.Close()
	return nil
}
