package blob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps versioned objects in Postgres. Bid documents are small
// (50MB cap) and low-volume, so bytea rows are a deliberate fit; the Store
// interface keeps an object-storage backend swappable.
type PGStore struct {
	db     *pgxpool.Pool
	bucket string
}

func NewPGStore(db *pgxpool.Pool, bucket string) *PGStore {
	return &PGStore{db: db, bucket: bucket}
}

func (s *PGStore) Put(ctx context.Context, key, contentType string, body []byte) (Version, error) {
	v := Version{
		Key:          key,
		VersionID:    uuid.NewString(),
		Size:         int64(len(body)),
		LastModified: time.Now().UTC(),
		IsLatest:     true,
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO blob_objects(bucket, object_key, version_id, size, content_type, body, created_at)
VALUES($1, $2, $3, $4, $5, $6, $7)`,
		s.bucket, key, v.VersionID, v.Size, contentType, body, v.LastModified)
	if err != nil {
		return Version{}, err
	}
	return v, nil
}

func (s *PGStore) Get(ctx context.Context, key, versionID string) (Object, error) {
	q := `
SELECT object_key, version_id, size, content_type, body, created_at
FROM blob_objects
WHERE bucket=$1 AND object_key=$2`
	args := []any{s.bucket, key}
	if versionID != "" {
		q += ` AND version_id=$3`
		args = append(args, versionID)
	}
	q += ` ORDER BY created_at DESC, version_id LIMIT 1`

	var o Object
	err := s.db.QueryRow(ctx, q, args...).Scan(
		&o.Key, &o.VersionID, &o.Size, &o.ContentType, &o.Body, &o.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if versionID != "" {
				return Object{}, ErrVersionNotFound
			}
			return Object{}, ErrNotFound
		}
		return Object{}, err
	}
	return o, nil
}

func (s *PGStore) ListVersions(ctx context.Context, prefix string) ([]Version, error) {
	rows, err := s.db.Query(ctx, `
SELECT object_key, version_id, size, created_at
FROM blob_objects
WHERE bucket=$1 AND object_key LIKE $2 || '%'
ORDER BY created_at DESC, version_id`,
		s.bucket, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	latestSeen := map[string]bool{}
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.Key, &v.VersionID, &v.Size, &v.LastModified); err != nil {
			return nil, err
		}
		if !latestSeen[v.Key] {
			v.IsLatest = true
			latestSeen[v.Key] = true
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PGStore) CopyVersion(ctx context.Context, key, versionID string) (Version, error) {
	newID := uuid.NewString()
	now := time.Now().UTC()
	var size int64
	err := s.db.QueryRow(ctx, `
INSERT INTO blob_objects(bucket, object_key, version_id, size, content_type, body, created_at)
SELECT bucket, object_key, $3, size, content_type, body, $4
FROM blob_objects
WHERE bucket=$1 AND object_key=$2 AND version_id=$5
RETURNING size`,
		s.bucket, key, newID, now, versionID).Scan(&size)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Version{}, ErrVersionNotFound
		}
		return Version{}, err
	}
	return Version{Key: key, VersionID: newID, Size: size, LastModified: now, IsLatest: true}, nil
}
