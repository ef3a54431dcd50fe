package domain

import "time"

// ProviderImage records metadata for a provider's profile image. The image
// bytes live in the object store under StorageKey.
type ProviderImage struct {
	ID          int64
	ProviderID  int64
	StorageKey  string
	FileName    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
