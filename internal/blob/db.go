package blob

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/nepremicnine/internal/store"
)

// DBStore keeps blobs in the blobs table.
type DBStore struct {
	db     *sql.DB
	prefix string
}

// NewDBStore returns a store backed by db.
func NewDBStore(db *sql.DB, prefix string) *DBStore {
	return &DBStore{db: db, prefix: prefix}
}

func (s *DBStore) Put(ctx context.Context, contentType string, data []byte) (string, error) {
	ref := newRef(s.prefix)
	if err := store.PutBlob(ctx, s.db, ref, contentType, data, time.Now().UTC()); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *DBStore) Get(ctx context.Context, ref string) ([]byte, string, error) {
	data, contentType, err := store.GetBlob(ctx, s.db, ref)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", ErrNotFound
	}
	return data, contentType, nil
}

func (s *DBStore) Stat(ctx context.Context, ref string) (Info, error) {
	contentType, size, found, err := store.StatBlob(ctx, s.db, ref)
	if err != nil {
		return Info{}, err
	}
	if !found {
		return Info{}, ErrNotFound
	}
	return Info{ContentType: contentType, Size: size}, nil
}

func (s *DBStore) Delete(ctx context.Context, ref string) error {
	return store.DeleteBlob(ctx, s.db, ref)
}
