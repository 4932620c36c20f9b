// Package store implements clip metadata persistence on top of gorm
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clipstash/clip-api/clip"
	"clipstash/clip-api/model"

	"gorm.io/gorm"
)

// ClipStore persists clips in the relational database. The unique index on
// the name column is the authoritative guard against duplicate names; this
// type only translates the constraint violation into the core taxonomy.
type ClipStore struct {
	db *gorm.DB
}

var _ clip.Store = (*ClipStore)(nil)

func New(db *gorm.DB) *ClipStore {
	return &ClipStore{db: db}
}

func (s *ClipStore) Insert(ctx context.Context, c *model.Clip) error {
	err := s.db.
		WithContext(ctx).
		Create(c).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return clip.ErrConflict
		}
		return fmt.Errorf("failed to insert clip, %w", err)
	}

	return nil
}

// FindByName returns the clip with its attachments in display order. The
// password hash is only populated when includeSecret is set, so normal
// reads can't leak it by accident.
func (s *ClipStore) FindByName(ctx context.Context, name string, includeSecret bool) (*model.Clip, error) {
	q := s.db.
		WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("name = ?", name)

	if !includeSecret {
		q = q.Omit("password_hash")
	}

	var c model.Clip

	err := q.First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, clip.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch clip, %w", err)
	}

	return &c, nil
}

// DeleteByID removes a clip and its file refs. Deleting an id that is
// already gone is a no-op so the lazy-expiry path and the reaper can race
// over the same clip safely.
func (s *ClipStore) DeleteByID(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("clip_id = ?", id).Delete(&model.FileRef{}).Error; err != nil {
			return fmt.Errorf("failed to delete file refs, %w", err)
		}

		if err := tx.Delete(&model.Clip{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete clip, %w", err)
		}

		return nil
	})
}

// FindExpiredAsOf returns every clip whose expiry is at or before t,
// attachments included. Only the reaper uses this; ordering is irrelevant.
func (s *ClipStore) FindExpiredAsOf(ctx context.Context, t time.Time) ([]model.Clip, error) {
	var clips []model.Clip

	err := s.db.
		WithContext(ctx).
		Preload("Files").
		Where("expiry <= ?", t).
		Find(&clips).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to query expired clips, %w", err)
	}

	return clips, nil
}
