package storage

import (
	"context"
	"io"
)

// MediaStore is the object storage collaborator used for avatars and post
// media. Keys returned by Upload are stable and can be stored on rows.
type MediaStore interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// UploadInput describes one object to store.
type UploadInput struct {
	Kind     MediaKind
	OwnerID  string
	Filename string // original name; only the extension is kept
	Body     io.Reader
	Size     int64
}

// MediaKind selects the key prefix and caching policy.
type MediaKind string

const (
	KindAvatar MediaKind = "avatars"
	KindPost   MediaKind = "posts"
)

// Ensure S3Store implements MediaStore
var _ MediaStore = (*S3Store)(nil)
