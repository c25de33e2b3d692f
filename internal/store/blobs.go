package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PutBlob stores binary content under ref.
func PutBlob(ctx context.Context, q Querier, ref, contentType string, data []byte, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO blobs (ref, content_type, size, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		ref, contentType, len(data), data, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}
	return nil
}

// GetBlob returns a blob's data and content type. data is nil if ref is unknown.
func GetBlob(ctx context.Context, q Querier, ref string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := q.QueryRowContext(ctx,
		`SELECT data, content_type FROM blobs WHERE ref = ?`, ref,
	).Scan(&data, &contentType)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting blob: %w", err)
	}
	return data, contentType, nil
}

// StatBlob reports a blob's content type and size without loading it.
func StatBlob(ctx context.Context, q Querier, ref string) (contentType string, size int64, found bool, err error) {
	err = q.QueryRowContext(ctx,
		`SELECT content_type, size FROM blobs WHERE ref = ?`, ref,
	).Scan(&contentType, &size)
	if err == sql.ErrNoRows {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("getting blob info: %w", err)
	}
	return contentType, size, true, nil
}

// DeleteBlob removes a blob. Unknown refs are not an error.
func DeleteBlob(ctx context.Context, q Querier, ref string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM blobs WHERE ref = ?`, ref); err != nil {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// PurgeOrphanBlobs deletes blobs created before cutoff that neither an
// investor profile nor a listing photo references.
func PurgeOrphanBlobs(ctx context.Context, q Querier, cutoff time.Time) (int64, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM blobs
		 WHERE created_at < ?
		   AND ref NOT IN (SELECT id_document_ref FROM investor_profiles)
		   AND ref NOT IN (SELECT ref FROM listing_photos)`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging orphan blobs: %w", err)
	}
	return result.RowsAffected()
}
