// Package blob is the versioned content store for bid documents. Every PUT
// creates a new immutable version under the same key; nothing is ever
// overwritten in place, so restore and audit always have the full history.
package blob

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("blob: object not found")
	ErrVersionNotFound = errors.New("blob: version not found")
)

type Version struct {
	Key          string    `json:"key"`
	VersionID    string    `json:"versionId"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	IsLatest     bool      `json:"isLatest"`
}

type Object struct {
	Version
	ContentType string
	Body        []byte
}

type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) (Version, error)
	// Get fetches a specific version, or the latest when versionID is empty.
	Get(ctx context.Context, key, versionID string) (Object, error)
	// ListVersions returns all versions under the key prefix, newest first.
	ListVersions(ctx context.Context, prefix string) ([]Version, error)
	// CopyVersion re-publishes a historical version as a brand-new latest
	// version of key. History is never rewritten.
	CopyVersion(ctx context.Context, key, versionID string) (Version, error)
}
