package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"QueueFM/core/persist"
	"QueueFM/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStateStore 用数据库表保存播放状态快照
type GormStateStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStateStore 创建快照存储，表需要已迁移
func NewGormStateStore(db *gorm.DB) *GormStateStore {
	return &GormStateStore{db: db, now: time.Now}
}

func (s *GormStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec model.StateRecord
	err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state %s: %w", key, err)
	}
	if rec.ExpiresAt != nil && !s.now().Before(*rec.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, persist.ErrNotFound
	}
	return rec.Value, nil
}

func (s *GormStateStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rec := model.StateRecord{Key: key, Value: value, UpdatedAt: s.now()}
	if ttl > 0 {
		exp := s.now().Add(ttl)
		rec.ExpiresAt = &exp
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save state %s: %w", key, err)
	}
	return nil
}

func (s *GormStateStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("`key` = ?", key).Delete(&model.StateRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete state %s: %w", key, err)
	}
	return nil
}
