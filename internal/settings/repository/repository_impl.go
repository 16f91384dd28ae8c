package repository

import (
	"context"
	"time"

	"github.com/hydranet/hydrabill/internal/settings/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error)
	Upsert(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error
	InsertIfAbsent(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error) {
	var item domain.Setting
	err := db.WithContext(ctx).Raw(
		`SELECT key, value, updated_at
		 FROM settings
		 WHERE key = ?
		 LIMIT 1`,
		key,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.Key == "" {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO settings (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		now,
	).Error
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO settings (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (key) DO NOTHING`,
		key,
		value,
		now,
	).Error
}
