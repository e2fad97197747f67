package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type localEntry struct {
	bun.BaseModel `bun:"table:local_state,alias:ls"`
	Key           string `bun:"key,pk"`
	Value         string `bun:"value,notnull"`
}

// LocalStore is the durable Store, a single key/value table in a sqlite
// database. It is the Go analogue of the source's localStorage slots:
// one credential string and one JSON-serialized User, surviving
// restarts.
type LocalStore struct {
	db *bun.DB
}

var _ Store = (*LocalStore)(nil)

// OpenLocalStore opens (and creates, if needed) the sqlite database at
// dsn. Use ":memory:" for a throwaway store.
func OpenLocalStore(ctx context.Context, dsn string) (*LocalStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	store := &LocalStore{db: db}

	if _, err := db.NewCreateTable().
		Model((*localEntry)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// NewLocalStore wraps an existing bun handle. The local_state table must
// already exist.
func NewLocalStore(db *bun.DB) *LocalStore {
	return &LocalStore{db: db}
}

// Close releases the underlying database handle.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) read(ctx context.Context, key string) (string, error) {
	entry := &localEntry{}
	err := s.db.NewSelect().
		Model(entry).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return entry.Value, nil
}

func (s *LocalStore) write(ctx context.Context, key, value string) error {
	entry := &localEntry{Key: key, Value: value}
	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

func (s *LocalStore) remove(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*localEntry)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

// GetToken returns the stored credential, or empty when absent.
func (s *LocalStore) GetToken(ctx context.Context) (string, error) {
	return s.read(ctx, TokenKey)
}

// SetToken stores the credential. An empty token clears the slot.
func (s *LocalStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.remove(ctx, TokenKey)
	}
	return s.write(ctx, TokenKey, token)
}

// ClearToken removes the credential slot.
func (s *LocalStore) ClearToken(ctx context.Context) error {
	return s.remove(ctx, TokenKey)
}

// GetSnapshot returns the cached User, or nil when absent or corrupt.
func (s *LocalStore) GetSnapshot(ctx context.Context) (*User, error) {
	raw, err := s.read(ctx, SnapshotKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	return decodeSnapshot(raw)
}

// SetSnapshot stores the User. A nil user clears the slot.
func (s *LocalStore) SetSnapshot(ctx context.Context, user *User) error {
	if user == nil {
		return s.remove(ctx, SnapshotKey)
	}
	raw, err := encodeSnapshot(user)
	if err != nil {
		return err
	}
	return s.write(ctx, SnapshotKey, raw)
}

// ClearSnapshot removes the cached User slot.
func (s *LocalStore) ClearSnapshot(ctx context.Context) error {
	return s.remove(ctx, SnapshotKey)
}
