// Package model defines database models
package model

import "time"

// Clip is the sole persisted entity. A clip is immutable once created and
// becomes logically dead as soon as its expiry passes, even while the row
// still exists.
type Clip struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// Uniqueness is enforced by the index, not by application code. The
	// pre-insert lookup in the lifecycle manager only exists for a friendlier
	// error path.
	Name string `gorm:"uniqueIndex;not null" json:"name"`

	Text string `json:"text"`

	// Never serialized and excluded from default reads. Callers that need to
	// verify a password must ask the store for it explicitly.
	PasswordHash string `json:"-"`

	Files []FileRef `gorm:"constraint:OnDelete:CASCADE" json:"files"`

	Expiry    time.Time `gorm:"not null" json:"expiry"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// FileRef is the metadata for one attachment. The bytes themselves never
// pass through this service, only through presigned grants.
type FileRef struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"-"`
	ClipID uint `gorm:"index" json:"-"`

	FileName    string `gorm:"not null" json:"file_name"`
	ContentType string `gorm:"not null" json:"content_type"`
	Size        int64  `gorm:"not null" json:"size"`

	// Derived from clip name + file name, so it can be reconstructed after a
	// partial failure without any extra key-allocation state.
	ObjectKey string `gorm:"not null" json:"-"`

	// Insertion order, which is also display order
	Position int `json:"-"`
}

// FileMeta is the client-supplied description of one attachment, used by
// both create and upload-grant requests.
type FileMeta struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// ObjectKey derives the object-store key for an attachment of the named clip.
func ObjectKey(clipName, fileName string) string {
	return clipName + "/" + fileName
}
